package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/example/hasface/hasface"
	"github.com/example/hasface/internal/config"
	"github.com/example/hasface/internal/logging"
)

// Exit codes of the check command.
const (
	exitOK      = 0
	exitInvalid = 1
	exitError   = 2
)

// errInvalid reports a rejected image after its messages were printed.
var errInvalid = errors.New("no face found")

type checkOptions struct {
	configPath string
	allowBlank bool
	allowNil   bool
	disable    bool
	verbose    bool
}

func main() {
	os.Exit(execute(os.Args[1:], os.Stdout, os.Stderr))
}

func execute(args []string, stdout, stderr io.Writer) int {
	root := newRootCmd(stdout)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.ExecuteContext(context.Background())
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, errInvalid):
		return exitInvalid
	default:
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitError
	}
}

func newRootCmd(stdout io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:           "hasface",
		Short:         "Check images for faces with the face detection API",
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	root.AddCommand(newCheckCmd(stdout))
	return root
}

func newCheckCmd(stdout io.Writer) *cobra.Command {
	var opts checkOptions

	cmd := &cobra.Command{
		Use:   "check [path]",
		Short: "Validate that the image at path shows a face",
		Long: "Validate that the image at path shows a face.\n" +
			"Paths starting with http:// or https:// are downloaded; other paths are read\n" +
			"from disk unless a hostname is configured. Without a path the value is nil.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd, args, opts, stdout)
		},
	}

	cmd.Flags().StringVarP(&opts.configPath, "config", "c", "", "Path to a YAML config file")
	cmd.Flags().BoolVar(&opts.allowBlank, "allow-blank", false, "Accept a blank path")
	cmd.Flags().BoolVar(&opts.allowNil, "allow-nil", false, "Accept a missing path")
	cmd.Flags().BoolVar(&opts.disable, "disable", false, "Disable face validation")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "Log at debug level")
	return cmd
}

func runCheck(cmd *cobra.Command, args []string, opts checkOptions, stdout io.Writer) error {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}
	if opts.disable {
		cfg.HasFace.EnableValidation = false
	}

	level := "error"
	if opts.verbose {
		level = "debug"
	}
	logger, err := logging.NewLogger(level)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	validator := hasface.New(&cfg.HasFace,
		hasface.WithAllowBlank(opts.allowBlank),
		hasface.WithAllowNil(opts.allowNil),
		hasface.WithLogger(logger),
	)

	var value any
	if len(args) == 1 {
		value = hasface.FilePath(args[0])
	}

	ok, errs, err := validator.Check(cmd.Context(), value)
	if err != nil {
		logger.Debug("check failed", zap.Error(err))
		return err
	}
	if ok {
		fmt.Fprintln(stdout, "ok")
		return nil
	}
	for _, msg := range errs.FullMessages() {
		fmt.Fprintln(stdout, msg)
	}
	return errInvalid
}
