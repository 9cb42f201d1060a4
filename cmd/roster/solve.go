package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/paiban/roster/pkg/logger"
	"github.com/paiban/roster/pkg/model"
	"github.com/paiban/roster/pkg/normalizer"
	"github.com/paiban/roster/pkg/scheduler/decoder"
	"github.com/paiban/roster/pkg/scheduler/policy"
	"github.com/paiban/roster/pkg/scheduler/solver"
	"github.com/paiban/roster/pkg/stats"
)

var solveFlags struct {
	input     string
	format    string
	output    string
	nextTail  string
	budget    time.Duration
	workers   int
	seed      int64
	coverage  string
	holiday   string
	weighting string
	tailDB    bool
	fairness  bool
}

var solveCmd = &cobra.Command{
	Use:   "solve",
	Short: "求解一期排班",
	RunE:  runSolve,
}

func init() {
	f := solveCmd.Flags()
	f.StringVarP(&solveFlags.input, "input", "i", "", "排班配置文件（yaml/json）")
	f.StringVarP(&solveFlags.format, "format", "o", "table", "输出格式：table, csv, yaml, json")
	f.StringVar(&solveFlags.output, "out", "", "输出文件，默认标准输出")
	f.StringVar(&solveFlags.nextTail, "next-tail", "", "把下一期的末尾状态写入该 YAML 文件")
	f.DurationVar(&solveFlags.budget, "budget", 0, "求解时限，如 20s")
	f.IntVar(&solveFlags.workers, "workers", 0, "并行岛数")
	f.Int64Var(&solveFlags.seed, "seed", 0, "随机种子，0 表示按时间")
	f.StringVar(&solveFlags.coverage, "coverage", "", "覆盖规则：hard 或 soft")
	f.StringVar(&solveFlags.holiday, "holiday", "", "公休规则：exact, tolerance 或 soft")
	f.StringVar(&solveFlags.weighting, "weighting", "", "目标比较：scalar 或 lexicographic")
	f.BoolVar(&solveFlags.tailDB, "tail-db", false, "从数据库读取并保存末尾状态")
	f.BoolVar(&solveFlags.fairness, "fairness", false, "表格输出时附带公平性统计")
	_ = solveCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(solveCmd)
}

func runSolve(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext()
	defer stop()

	opts, err := solveOptions()
	if err != nil {
		return err
	}
	raw, err := normalizer.Load(solveFlags.input)
	if err != nil {
		return err
	}

	var saveTail func(p *model.Problem, tail map[string][]string)
	if solveFlags.tailDB {
		db, tails, err := openTailStore(ctx, appCfg)
		if err != nil {
			return err
		}
		defer db.Close()
		if len(raw.Tail) == 0 {
			period := fmt.Sprintf("%04d-%02d", raw.Year, raw.Month)
			if raw.Tail, err = tails.Load(ctx, period); err != nil {
				return err
			}
		}
		saveTail = func(p *model.Problem, tail map[string][]string) {
			if err := tails.Save(ctx, p.NextPeriod(), p.Staff, tail); err != nil {
				logger.Warn().Err(err).Msg("保存末尾状态失败")
			}
		}
	}

	problem, err := normalizer.Normalize(raw)
	if err != nil {
		return err
	}
	result, err := solver.NewEngine(opts).Solve(ctx, problem)
	if err != nil {
		if result != nil && result.Reason != "" {
			fmt.Fprintf(cmd.ErrOrStderr(), "%s: %s\n", result.Status, result.Reason)
		}
		return err
	}

	next := decoder.NextTail(problem, result.Assignment)
	if saveTail != nil {
		saveTail(problem, next)
	}
	if solveFlags.nextTail != "" {
		if err := writeNextTail(solveFlags.nextTail, next); err != nil {
			return err
		}
	}

	out := cmd.OutOrStdout()
	if solveFlags.output != "" {
		f, err := os.Create(solveFlags.output)
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
	}
	schedule := decoder.Decode(problem, result)
	if err := writeSchedule(out, schedule, solveFlags.format); err != nil {
		return err
	}
	if solveFlags.fairness && solveFlags.format == "table" {
		fmt.Fprintln(out, renderFairness(stats.NewFairnessAnalyzer().Analyze(problem, result.Assignment)))
	}
	return nil
}

// solveOptions 应用配置为底，命令行参数覆盖
func solveOptions() (solver.Options, error) {
	opts, err := appCfg.Scheduler.SolverOptions()
	if err != nil {
		return opts, err
	}
	if solveFlags.budget > 0 {
		opts.TimeLimit = solveFlags.budget
	}
	if solveFlags.workers > 0 {
		opts.Workers = solveFlags.workers
	}
	if solveFlags.seed != 0 {
		opts.Seed = solveFlags.seed
	}
	if solveFlags.coverage != "" {
		if opts.Policy.Coverage, err = policy.ParseStrictness(solveFlags.coverage); err != nil {
			return opts, err
		}
	}
	if solveFlags.holiday != "" {
		if opts.Policy.Holiday, err = policy.ParseHolidayMode(solveFlags.holiday); err != nil {
			return opts, err
		}
	}
	if solveFlags.weighting != "" {
		if opts.Policy.Weighting, err = policy.ParseWeighting(solveFlags.weighting); err != nil {
			return opts, err
		}
	}
	return opts, opts.Policy.Validate()
}

func writeNextTail(path string, tail map[string][]string) error {
	data, err := yaml.Marshal(map[string]interface{}{"tail": tail})
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
