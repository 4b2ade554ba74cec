package config

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// Wizard provides an interactive configuration wizard
type Wizard struct {
	reader *bufio.Reader
	out    io.Writer
}

// NewWizard creates a new configuration wizard reading from stdin
func NewWizard() *Wizard {
	return NewWizardWithIO(os.Stdin, os.Stdout)
}

// NewWizardWithIO creates a wizard bound to the given streams
func NewWizardWithIO(in io.Reader, out io.Writer) *Wizard {
	return &Wizard{
		reader: bufio.NewReader(in),
		out:    out,
	}
}

// Run runs the interactive configuration wizard
func (w *Wizard) Run() (*Config, error) {
	fmt.Fprintln(w.out, "=== Parley Configuration Wizard ===")
	fmt.Fprintln(w.out)

	cfg := DefaultConfig()
	validator := NewValidator()

	// Hub server
	fmt.Fprintln(w.out, "Chat hub:")
	fmt.Fprintln(w.out)

	fmt.Fprintf(w.out, "Listen host [%s]: ", cfg.Server.Host)
	host, err := w.readLine()
	if err != nil {
		return nil, err
	}
	if host != "" {
		cfg.Server.Host = host
	}

	for {
		fmt.Fprintf(w.out, "Listen port [%d]: ", cfg.Server.Port)
		raw, err := w.readLine()
		if err != nil {
			return nil, err
		}

		if raw == "" {
			break
		}

		port, err := strconv.Atoi(raw)
		if err != nil {
			fmt.Fprintf(w.out, "Error: %q is not a number\n", raw)
			continue
		}
		if err := validator.ValidatePort(port); err != nil {
			fmt.Fprintf(w.out, "Error: %v\n", err)
			continue
		}

		cfg.Server.Port = port
		break
	}

	fmt.Fprintln(w.out)

	// WebSocket gateway
	fmt.Fprintln(w.out, "WebSocket gateway:")
	fmt.Fprintln(w.out)

	fmt.Fprint(w.out, "Enable the WebSocket gateway? (y/n) [y]: ")
	enable, err := w.readLine()
	if err != nil {
		return nil, err
	}

	if enable == "" || strings.ToLower(enable) == "y" {
		cfg.Gateway.Enabled = true

		for {
			fmt.Fprintf(w.out, "Gateway port [%d]: ", cfg.Gateway.Port)
			raw, err := w.readLine()
			if err != nil {
				return nil, err
			}

			if raw == "" {
				break
			}

			port, err := strconv.Atoi(raw)
			if err != nil {
				fmt.Fprintf(w.out, "Error: %q is not a number\n", raw)
				continue
			}
			if err := validator.ValidatePort(port); err != nil {
				fmt.Fprintf(w.out, "Error: %v\n", err)
				continue
			}
			if port == cfg.Server.Port {
				fmt.Fprintln(w.out, "Error: gateway port must differ from the hub port")
				continue
			}

			cfg.Gateway.Port = port
			break
		}
	} else {
		cfg.Gateway.Enabled = false
	}

	fmt.Fprintln(w.out)

	// Bulletin board
	fmt.Fprint(w.out, "Enable the bulletin board (MOTD and announcements)? (y/n) [y]: ")
	enable, err = w.readLine()
	if err != nil {
		return nil, err
	}
	cfg.Bulletin.Enabled = enable == "" || strings.ToLower(enable) == "y"

	fmt.Fprintln(w.out)

	// Log Level
	fmt.Fprintln(w.out, "Logging:")
	fmt.Fprint(w.out, "Log level (debug/info/warn/error) [info]: ")
	level, err := w.readLine()
	if err != nil {
		return nil, err
	}

	if level != "" {
		if err := validator.ValidateLogLevel(level); err != nil {
			fmt.Fprintf(w.out, "Warning: %v, using default (info)\n", err)
		} else {
			cfg.Logging.Level = strings.ToLower(level)
		}
	}

	fmt.Fprintln(w.out)
	fmt.Fprintln(w.out, "Configuration complete!")

	return cfg, nil
}

func (w *Wizard) readLine() (string, error) {
	line, err := w.reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}
