package main

import (
	"bufio"
	"encoding/json"
	"os"

	"github.com/hpcloud/tail"
	"github.com/spf13/cobra"

	"github.com/jeffrom/heclog"
	"github.com/jeffrom/heclog/client"
	"github.com/jeffrom/heclog/config"
	"github.com/jeffrom/heclog/internal"
)

var (
	logTypeFlag   string
	eventNameFlag string
	inputFlag     string
	outputFlag    string
	followFlag    bool
)

func init() {
	pflags := WriteCmd.PersistentFlags()

	pflags.StringVar(&logTypeFlag, "log-type", "info",
		"a `TYPE` for the events")
	pflags.StringVar(&eventNameFlag, "event-name", "message",
		"a `NAME` for the events")
	pflags.StringVar(&inputFlag, "input", "",
		"A file path to read events from")
	pflags.StringVar(&outputFlag, "output", "",
		"A file path for writing batch results")
	pflags.BoolVarP(&followFlag, "follow", "F", false,
		"Keep reading input until the program is killed")
}

var WriteCmd = &cobra.Command{
	Use:     "write [events]",
	Aliases: []string{"w"},
	Short:   "Send events to the collector",
	Long:    ``,
	RunE: func(cmd *cobra.Command, args []string) error {
		internal.Debugf(tmpConfig, "%+v", tmpConfig)
		return doWrite(tmpConfig, cmd, args)
	},
}

func doWrite(conf *config.Config, c *cobra.Command, args []string) error {
	done := make(chan struct{})
	handleKills(done)

	logger, err := heclog.New(conf)
	if err != nil {
		return err
	}

	out, err := getFile(outputFlag)
	if err != nil {
		return err
	}
	if out != nil {
		defer out.Close()
		logger.Writer().WithStateHandler(client.NewStateOutputter(out))
	}

	for _, arg := range args {
		record(logger, arg)
	}

	if inputFlag != "" {
		if err := writeFromFile(logger, conf, done); err != nil {
			internal.LogError(logger.Close())
			return err
		}
		return logger.Close()
	}

	if len(args) == 0 {
		// check if there's data in stdin
		stat, _ := os.Stdin.Stat()
		if (stat.Mode() & os.ModeCharDevice) == 0 {
			scanner := bufio.NewScanner(os.Stdin)
			scanner.Split(bufio.ScanLines)
			for scanner.Scan() {
				record(logger, scanner.Text())
			}
		}
	}

	return logger.Close()
}

func writeFromFile(logger *heclog.Logger, conf *config.Config, done chan struct{}) error {
	if followFlag {
		t, err := tail.TailFile(inputFlag, tail.Config{
			Follow: true,
			ReOpen: true,
			Logger: tail.DiscardingLogger,
		})
		if err != nil {
			return err
		}
		defer func() { internal.IgnoreError(t.Stop()) }()

		for {
			select {
			case line, ok := <-t.Lines:
				if !ok {
					return t.Err()
				}
				if line.Err != nil {
					return line.Err
				}
				record(logger, line.Text)
			case <-done:
				return nil
			}
		}
	}

	f, err := os.Open(inputFlag)
	if err != nil {
		return err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Split(bufio.ScanLines)
	for scanner.Scan() {
		record(logger, scanner.Text())
	}
	return scanner.Err()
}

// record ships one input line. Lines that parse as JSON objects become the
// event details; anything else is wrapped as a message.
func record(logger *heclog.Logger, line string) {
	if line == "" {
		return
	}

	var details map[string]interface{}
	if err := json.Unmarshal([]byte(line), &details); err != nil {
		details = map[string]interface{}{"message": line}
	}
	logger.Record(logTypeFlag, eventNameFlag, details)
}

func getFile(path string) (*os.File, error) {
	if path == "" {
		return nil, nil
	}
	if path == "-" {
		return os.Stdout, nil
	}
	return os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
}
