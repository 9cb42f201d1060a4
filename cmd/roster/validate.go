package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	apperrors "github.com/paiban/roster/pkg/errors"
	"github.com/paiban/roster/pkg/normalizer"
	"github.com/paiban/roster/pkg/scheduler/decoder"
	"github.com/paiban/roster/pkg/validator"
)

var validateFlags struct {
	input    string
	schedule string
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "按当前规则复核一张排班表（CSV）",
	RunE:  runValidate,
}

func init() {
	f := validateCmd.Flags()
	f.StringVarP(&validateFlags.input, "input", "i", "", "排班配置文件（yaml/json）")
	f.StringVarP(&validateFlags.schedule, "schedule", "s", "", "solve -o csv 导出的排班表")
	_ = validateCmd.MarkFlagRequired("input")
	_ = validateCmd.MarkFlagRequired("schedule")
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	opts, err := appCfg.Scheduler.SolverOptions()
	if err != nil {
		return err
	}
	raw, err := normalizer.Load(validateFlags.input)
	if err != nil {
		return err
	}
	problem, err := normalizer.Normalize(raw)
	if err != nil {
		return err
	}
	f, err := os.Open(validateFlags.schedule)
	if err != nil {
		return apperrors.Wrap(err, apperrors.CodeInvalidInput, "无法读取排班表").WithField("path", validateFlags.schedule)
	}
	defer f.Close()
	assignment, err := decoder.ReadCSV(f, problem)
	if err != nil {
		return err
	}

	conflicts := validator.NewConflictDetector(validator.ConfigFromPolicy(opts.Policy)).DetectAll(problem, assignment)
	out := cmd.OutOrStdout()
	if len(conflicts) == 0 {
		fmt.Fprintln(out, "排班表满足全部规则")
		return nil
	}
	fmt.Fprintln(out, renderConflicts(conflicts))
	if validator.HasErrors(conflicts) {
		return apperrors.ConstraintViolation("schedule", fmt.Sprintf("发现 %d 项冲突", len(conflicts)))
	}
	return nil
}
