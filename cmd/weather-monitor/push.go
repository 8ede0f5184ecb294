package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/cobra"

	"github.com/syakhish/weather-monitor/internal/client"
	"github.com/syakhish/weather-monitor/internal/reading"
)

var pushCmd = &cobra.Command{
	Use:   "push [json]",
	Short: "Send one reading to the server",
	Long: `Send one reading to the server, the way the station does.

The reading is either a JSON object argument or built from --field flags:
  weather-monitor push '{"suhu":27.5,"kelembapan":80}'
  weather-monitor push --field suhu=27.5 --field kelembapan=80 --stamp`,
	Args: cobra.MaximumNArgs(1),
	RunE: runPush,
}

type pushOptions struct {
	Server  string        `validate:"required,url"`
	Timeout time.Duration `validate:"gte=1s"`
	Fields  []string
	Stamp   bool
}

var (
	pushOpts     pushOptions
	pushValidate = validator.New()

	errEmptyReading = errors.New("nothing to push: give a JSON object or at least one --field")
)

func init() {
	rootCmd.AddCommand(pushCmd)

	pushCmd.Flags().StringVar(&pushOpts.Server, "server", "", "server base URL (default: dashboard API URL from config)")
	pushCmd.Flags().DurationVar(&pushOpts.Timeout, "timeout", 10*time.Second, "request timeout")
	pushCmd.Flags().StringArrayVar(&pushOpts.Fields, "field", nil, "field as key=value; values are parsed as JSON when possible")
	pushCmd.Flags().BoolVar(&pushOpts.Stamp, "stamp", false, "set timestamp to the current Unix time when missing")
}

func runPush(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}

	opts := pushOpts
	if opts.Server == "" {
		opts.Server = cfg.Dashboard.APIURL
	}
	if err := pushValidate.Struct(opts); err != nil {
		return fmt.Errorf("invalid push options: %w", err)
	}

	var raw string
	if len(args) == 1 {
		raw = args[0]
	}
	r, err := buildReading(raw, opts.Fields, opts.Stamp, time.Now())
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), opts.Timeout)
	defer cancel()

	c := client.New(&http.Client{Timeout: opts.Timeout}, opts.Server)
	if err := c.Push(ctx, r); err != nil {
		log.Error().Err(err).Str("server", opts.Server).Msg("push failed")
		return err
	}

	log.Info().Str("server", opts.Server).Strs("fields", r.Keys()).Msg("reading pushed")
	return nil
}

// buildReading merges a JSON object and key=value fields into one reading.
// Fields override keys of the JSON object.
func buildReading(raw string, fields []string, stamp bool, now time.Time) (reading.Reading, error) {
	r := reading.New()
	if strings.TrimSpace(raw) != "" {
		decoded, err := reading.Decode([]byte(raw))
		if err != nil {
			return reading.Reading{}, err
		}
		r = decoded
	}

	for _, f := range fields {
		key, value, ok := strings.Cut(f, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return reading.Reading{}, fmt.Errorf("invalid --field %q: want key=value", f)
		}

		var err error
		if json.Valid([]byte(value)) {
			err = r.SetRaw(key, json.RawMessage(value))
		} else {
			err = r.Set(key, value)
		}
		if err != nil {
			return reading.Reading{}, err
		}
	}

	if stamp {
		if _, ok := r.Raw(reading.FieldTimestamp); !ok {
			if err := r.Set(reading.FieldTimestamp, now.Unix()); err != nil {
				return reading.Reading{}, err
			}
		}
	}

	if r.Len() == 0 {
		return reading.Reading{}, errEmptyReading
	}
	return r, nil
}
