package main

import (
	"flag"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"

	"github.com/poiesic/corpus/core"
)

func commandByName(t *testing.T, app *cli.App, name string) *cli.Command {
	t.Helper()
	for _, cmd := range app.Commands {
		if cmd.Name == name {
			return cmd
		}
	}
	t.Fatalf("command %q not found", name)
	return nil
}

func stringFlag(t *testing.T, cmd *cli.Command, name string) *cli.StringFlag {
	t.Helper()
	for _, f := range cmd.Flags {
		if sf, ok := f.(*cli.StringFlag); ok && sf.Name == name {
			return sf
		}
	}
	t.Fatalf("string flag %q not found on %q", name, cmd.Name)
	return nil
}

func intFlag(t *testing.T, cmd *cli.Command, name string) *cli.IntFlag {
	t.Helper()
	for _, f := range cmd.Flags {
		if inf, ok := f.(*cli.IntFlag); ok && inf.Name == name {
			return inf
		}
	}
	t.Fatalf("int flag %q not found on %q", name, cmd.Name)
	return nil
}

func buildApp() *cli.App {
	app := &cli.App{
		Name: "corpus",
		Commands: []*cli.Command{
			{
				Name:   "ingest",
				Action: ingestCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "db", Aliases: []string{"d"}, Required: true},
					&cli.StringFlag{Name: "embedding-host", Value: "http://localhost:11434/v1"},
					&cli.StringFlag{Name: "embedding-model", Required: true},
					&cli.StringFlag{Name: "uploads-dir", Value: "uploads"},
					&cli.StringFlag{Name: "mime"},
				},
			},
			{
				Name:   "reindex",
				Action: reindexCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "db", Aliases: []string{"d"}, Required: true},
					&cli.StringFlag{Name: "embedding-host", Value: "http://localhost:11434/v1"},
					&cli.StringFlag{Name: "embedding-model", Required: true},
					&cli.IntFlag{Name: "batch-size", Value: 100},
					&cli.IntFlag{Name: "report-interval", Value: 100},
					&cli.IntFlag{Name: "max-retries", Value: 3},
					&cli.IntFlag{Name: "workers", Value: 2},
				},
			},
		},
	}
	return app
}

func TestCommandFlags(t *testing.T) {
	app := buildApp()

	t.Run("embedding-model is required for ingest", func(t *testing.T) {
		err := app.Run([]string{"corpus", "ingest", "--db", "/tmp/test", "file.txt"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "embedding-model")
	})

	t.Run("embedding-host has default value", func(t *testing.T) {
		cmd := commandByName(t, app, "ingest")
		assert.Equal(t, "http://localhost:11434/v1", stringFlag(t, cmd, "embedding-host").Value)
	})

	t.Run("uploads-dir has default value", func(t *testing.T) {
		cmd := commandByName(t, app, "ingest")
		assert.Equal(t, "uploads", stringFlag(t, cmd, "uploads-dir").Value)
	})

	t.Run("reindex batch-size defaults to 100", func(t *testing.T) {
		cmd := commandByName(t, app, "reindex")
		assert.Equal(t, 100, intFlag(t, cmd, "batch-size").Value)
	})

	t.Run("reindex workers defaults to 2", func(t *testing.T) {
		cmd := commandByName(t, app, "reindex")
		assert.Equal(t, 2, intFlag(t, cmd, "workers").Value)
	})

	t.Run("reindex max-retries defaults to 3", func(t *testing.T) {
		cmd := commandByName(t, app, "reindex")
		assert.Equal(t, 3, intFlag(t, cmd, "max-retries").Value)
	})
}

func TestReindexCommandValidation(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{
			name:    "zero batch-size",
			args:    []string{"corpus", "reindex", "--db", "/tmp/test", "--embedding-model", "m", "--batch-size", "0"},
			wantErr: "batch-size must be greater than 0",
		},
		{
			name:    "zero report-interval",
			args:    []string{"corpus", "reindex", "--db", "/tmp/test", "--embedding-model", "m", "--report-interval", "0"},
			wantErr: "report-interval must be greater than 0",
		},
		{
			name:    "zero workers",
			args:    []string{"corpus", "reindex", "--db", "/tmp/test", "--embedding-model", "m", "--workers", "0"},
			wantErr: "workers must be greater than 0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := buildApp()
			// reindexCommand reads retry-delay, which the shortened
			// test flag set above omits.
			cmd := commandByName(t, app, "reindex")
			cmd.Flags = append(cmd.Flags, &cli.DurationFlag{Name: "retry-delay", Value: 1 * time.Second})

			err := app.Run(tt.args)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestMimeForPath(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"report.pdf", core.MimePDF},
		{"notes.TXT", core.MimePlainText},
		{"README.md", core.MimeMarkdown},
		{"guide.markdown", core.MimeMarkdown},
		{"contract.docx", core.MimeWordProcessor},
		{"archive.zip", ""},
		{"noextension", ""},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, mimeForPath(tt.path))
		})
	}
}

func TestParseStatus(t *testing.T) {
	tests := []struct {
		in      string
		want    core.DocumentStatus
		wantErr bool
	}{
		{"processing", core.StatusProcessing, false},
		{"COMPLETED", core.StatusCompleted, false},
		{"failed", core.StatusFailed, false},
		{"done", 0, true},
		{"", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseStatus(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSetupLogger(t *testing.T) {
	newContext := func(level string) *cli.Context {
		set := flag.NewFlagSet("test", flag.ContinueOnError)
		set.String("log-level", level, "")
		return cli.NewContext(cli.NewApp(), set, nil)
	}

	t.Run("accepts known levels", func(t *testing.T) {
		for _, level := range []string{"debug", "info", "WARN", "error"} {
			assert.NoError(t, setupLogger(newContext(level)))
		}
	})

	t.Run("rejects unknown level", func(t *testing.T) {
		err := setupLogger(newContext("verbose"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid log level")
	})
}
