/*
Package cli provides command-line interface utilities for Meshlens.

The cli package includes output formatters, typed command errors, and
signal handling used by the meshlens command.

Output Formatting:

Command results render as text or JSON:

	formatter := cli.NewFormatter(cli.FormatJSON)
	if err := formatter.FormatTo(os.Stdout, runs); err != nil {
		return err
	}

Signal Handling:

For graceful shutdown on SIGINT/SIGTERM:

	ctx := cli.SetupSignalHandler()
	// Use ctx for operations that should be cancelled on shutdown
*/
package cli
