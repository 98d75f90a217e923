package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	modbus "github.com/hootrhino/modbustcp"
)

type connFlags struct {
	config           string
	address          string
	port             uint16
	unit             uint8
	timeoutMs        int
	framed           bool
	decodeExceptions bool
	logLevel         string
	capture          string
}

func newRootCmd() *cobra.Command {
	flags := &connFlags{}

	rootCmd := &cobra.Command{
		Use:   "modbus-client",
		Short: "MODBUS TCP master for one-off reads and writes",
		Long: `modbus-client sends a single MODBUS TCP request to a server and prints
the decoded result, or the server's exception.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	bindConnFlags(rootCmd, flags)

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newReadBitsCmd(flags, "read-coils", "Read coils (function 0x01)", (*modbus.Client).ReadCoils))
	rootCmd.AddCommand(newReadBitsCmd(flags, "read-discrete-inputs", "Read discrete inputs (function 0x02)", (*modbus.Client).ReadDiscreteInputs))
	rootCmd.AddCommand(newReadRegistersCmd(flags, "read-holding-registers", "Read holding registers (function 0x03)", (*modbus.Client).ReadHoldingRegisters))
	rootCmd.AddCommand(newReadRegistersCmd(flags, "read-input-registers", "Read input registers (function 0x04)", (*modbus.Client).ReadInputRegisters))
	rootCmd.AddCommand(newWriteSingleCoilCmd(flags))
	rootCmd.AddCommand(newWriteSingleRegisterCmd(flags))
	rootCmd.AddCommand(newWriteMultipleCoilsCmd(flags))
	rootCmd.AddCommand(newWriteMultipleRegistersCmd(flags))

	return rootCmd
}

// bindConnFlags registers the connection flags shared by every subcommand.
func bindConnFlags(cmd *cobra.Command, flags *connFlags) {
	pf := cmd.PersistentFlags()
	pf.StringVar(&flags.config, "config", "", "YAML config file (flags override its values)")
	pf.StringVar(&flags.address, "address", "", "Server IP address, optionally with :port")
	pf.Uint16Var(&flags.port, "port", modbus.DefaultTCPPort, "Server TCP port when --address has none")
	pf.Uint8Var(&flags.unit, "unit", modbus.DefaultUnitID, "Unit identifier")
	pf.IntVar(&flags.timeoutMs, "timeout", int(modbus.DefaultTimeout/time.Millisecond), "Exchange timeout in milliseconds")
	pf.BoolVar(&flags.framed, "framed", false, "Read the MBAP header first instead of one fixed-size read")
	pf.BoolVar(&flags.decodeExceptions, "decode-exceptions", false, "Report the exception code sent by the server")
	pf.StringVar(&flags.logLevel, "log-level", "disabled", "Log level: debug, info, warn, error, disabled")
	pf.StringVar(&flags.capture, "capture", "", "Write the session to this pcap file")
}

// clientConfig merges the config file, if any, with the flags that were set.
func clientConfig(cmd *cobra.Command, flags *connFlags) (*modbus.Config, error) {
	cfg := &modbus.Config{}
	if flags.config != "" {
		loaded, err := modbus.LoadConfig(flags.config)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	changed := func(name string) bool {
		return flags.config == "" || cmd.Flags().Changed(name)
	}
	if changed("address") && flags.address != "" {
		cfg.Address = flags.address
	}
	if changed("port") {
		cfg.Port = flags.port
	}
	if changed("unit") {
		unit := flags.unit
		cfg.UnitID = &unit
	}
	if changed("timeout") {
		cfg.TimeoutMs = flags.timeoutMs
	}
	if changed("framed") {
		cfg.ReadMode = modbus.ReadFixed.String()
		if flags.framed {
			cfg.ReadMode = modbus.ReadFramed.String()
		}
	}
	if changed("decode-exceptions") {
		cfg.DecodeExceptions = flags.decodeExceptions
	}
	if changed("log-level") {
		cfg.LogLevel = flags.logLevel
	}
	if changed("capture") && flags.capture != "" {
		cfg.CaptureFile = flags.capture
	}
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// withClient connects, runs fn and disconnects.
func withClient(cmd *cobra.Command, flags *connFlags, fn func(*modbus.Client) error) error {
	cfg, err := clientConfig(cmd, flags)
	if err != nil {
		return err
	}
	client, err := modbus.NewClientFromConfig(cfg, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.Timeout()+time.Second)
	defer cancel()
	if err := client.Connect(ctx); err != nil {
		return err
	}
	defer client.Disconnect()
	return fn(client)
}

// printOutcome writes the data of a good outcome and turns anything else
// into an error.
func printOutcome[T bool | uint16](w io.Writer, o modbus.Outcome[T], format func(T) string) error {
	good, ok := o.Good()
	if !ok {
		return o.Err()
	}
	for i, v := range good.Data {
		fmt.Fprintf(w, "[%d] %s\n", i, format(v))
	}
	fmt.Fprintf(w, "elapsed: %d ms\n", good.ElapsedMilliseconds)
	return nil
}

func formatBit(v bool) string {
	if v {
		return "1"
	}
	return "0"
}

func formatRegister(v uint16) string {
	return fmt.Sprintf("%d (0x%04X)", v, v)
}
