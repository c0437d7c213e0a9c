// Copyright 2024 Tantora, Inc.
// SPDX-License-Identifier: Apache-2.0

// Command mariawire decodes a captured server-to-client byte stream and
// prints the typed messages, for inspecting traces offline.
package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/tantora/mariawire/lib/util/errors"
	"github.com/tantora/mariawire/lib/util/logger"
	"github.com/tantora/mariawire/pkg/client"
	"github.com/tantora/mariawire/pkg/config"
	"github.com/tantora/mariawire/pkg/proto"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   os.Args[0],
		Short: "decode captured database protocol traffic",
	}
	rootCmd.SetOut(os.Stdout)
	rootCmd.SetErr(os.Stderr)

	var (
		configFile string
		capability string
		command    string
	)
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path")
	rootCmd.PersistentFlags().StringVar(&capability, "capability", "0x81bea205", "negotiated capability bitmask, hex")
	rootCmd.PersistentFlags().StringVar(&command, "command", "query", "command the stream answers: query, execute or prepare")

	rootCmd.RunE = func(cmd *cobra.Command, args []string) error {
		if len(args) != 1 {
			return errors.New("expecting exactly one trace file argument")
		}

		cfg := &config.Config{}
		if configFile != "" {
			data, err := os.ReadFile(configFile)
			if err != nil {
				return errors.WithStack(err)
			}
			if cfg, err = config.NewConfig(data); err != nil {
				return err
			}
		} else {
			cfg.FillDefaults()
		}

		lg, closeLogger, err := logger.Build(logger.Config{
			Encoder:  cfg.Log.Encoder,
			Level:    cfg.Log.Level,
			Filename: cfg.Log.LogFile.Filename,
			MaxSize:  cfg.Log.LogFile.MaxSize,
			MaxDays:  cfg.Log.LogFile.MaxDays,
		})
		if err != nil {
			return err
		}
		defer func() {
			_ = closeLogger()
		}()

		caps, err := strconv.ParseUint(capability, 0, 32)
		if err != nil {
			return errors.Wrapf(err, "bad capability %q", capability)
		}

		var initial client.DecodeState
		switch command {
		case "query":
			initial = client.TextQueryState()
		case "execute":
			initial = client.BinaryQueryState()
		case "prepare":
			initial = client.PrepareState()
		default:
			return errors.Errorf("unknown command %q", command)
		}

		data, err := os.ReadFile(args[0])
		if err != nil {
			return errors.WithStack(err)
		}

		ctx := client.NewContext("8.0.11", 0, proto.Capability(caps), 0, false)
		queue := client.NewCommandQueue()
		dec := client.NewDecoder(lg, ctx, queue, nil, nil, nil)
		sink := &printSink{out: cmd}
		dec.Submit(&client.CommandElement{Initial: initial, Sink: sink})
		return dec.Decode(data)
	}

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type printSink struct {
	out  *cobra.Command
	rows int
}

func (s *printSink) Next(msg client.ServerMessage) {
	switch m := msg.(type) {
	case *client.OkPacket:
		s.out.Printf("OK affected=%d last_insert_id=%d status=%s\n", m.AffectedRows, m.LastInsertID, m.Status)
	case *client.ErrPacket:
		s.out.Printf("ERR %d (%s): %s\n", m.Code, m.State, m.Message)
	case *client.EofPacket:
		s.out.Printf("EOF status=%s\n", m.Status)
	case *client.ColumnCountPacket:
		s.out.Printf("result set with %d columns\n", m.Count)
	case *client.ColumnDefinitionPacket:
		s.out.Printf("column %s %s\n", m.Column.Name, m.Column.Type)
	case *client.RowPacket:
		s.rows++
	case *client.PrepareHeaderPacket:
		s.out.Printf("prepared statement %d: %d params, %d columns\n", m.StatementID, m.NumParams, m.NumColumns)
	case *client.PreparedStatementPacket:
		s.out.Printf("prepare complete, statement %d\n", m.Stmt.StatementID())
	}
}

func (s *printSink) Complete() {
	if s.rows > 0 {
		s.out.Printf("%d rows\n", s.rows)
	}
	s.out.Println("command complete")
}

func (s *printSink) Error(err error) {
	s.out.PrintErrf("command failed: %v\n", err)
}
