package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	modbus "github.com/hootrhino/modbustcp"
)

func newReadBitsCmd(flags *connFlags, use, short string, read func(*modbus.Client, uint16, uint16) modbus.CoilOutcome) *cobra.Command {
	return &cobra.Command{
		Use:     use + " ADDRESS QUANTITY",
		Short:   short,
		Args:    cobra.ExactArgs(2),
		Example: "  modbus-client " + use + " --address 192.168.0.10 0 16",
		RunE: func(cmd *cobra.Command, args []string) error {
			address, quantity, err := parseAddressQuantity(args)
			if err != nil {
				return err
			}
			return withClient(cmd, flags, func(c *modbus.Client) error {
				return printOutcome(cmd.OutOrStdout(), read(c, address, quantity), formatBit)
			})
		},
	}
}

func newReadRegistersCmd(flags *connFlags, use, short string, read func(*modbus.Client, uint16, uint16) modbus.RegisterOutcome) *cobra.Command {
	return &cobra.Command{
		Use:     use + " ADDRESS QUANTITY",
		Short:   short,
		Args:    cobra.ExactArgs(2),
		Example: "  modbus-client " + use + " --address 192.168.0.10 0x0010 4",
		RunE: func(cmd *cobra.Command, args []string) error {
			address, quantity, err := parseAddressQuantity(args)
			if err != nil {
				return err
			}
			return withClient(cmd, flags, func(c *modbus.Client) error {
				return printOutcome(cmd.OutOrStdout(), read(c, address, quantity), formatRegister)
			})
		},
	}
}

func newWriteSingleCoilCmd(flags *connFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "write-single-coil ADDRESS on|off",
		Short: "Write a single coil (function 0x05)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			address, err := parseWord(args[0])
			if err != nil {
				return err
			}
			on, err := parseBit(args[1])
			if err != nil {
				return err
			}
			return withClient(cmd, flags, func(c *modbus.Client) error {
				return printOutcome(cmd.OutOrStdout(), c.WriteSingleCoil(address, modbus.CoilValueOf(on).Word()), formatBit)
			})
		},
	}
}

func newWriteSingleRegisterCmd(flags *connFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "write-single-register ADDRESS VALUE",
		Short: "Write a single holding register (function 0x06)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			address, err := parseWord(args[0])
			if err != nil {
				return err
			}
			value, err := parseWord(args[1])
			if err != nil {
				return err
			}
			return withClient(cmd, flags, func(c *modbus.Client) error {
				return printOutcome(cmd.OutOrStdout(), c.WriteSingleRegister(address, value), formatRegister)
			})
		},
	}
}

func newWriteMultipleCoilsCmd(flags *connFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "write-multiple-coils ADDRESS BIT...",
		Short: "Write consecutive coils (function 0x0F)",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			address, err := parseWord(args[0])
			if err != nil {
				return err
			}
			states := make([]bool, 0, len(args)-1)
			for _, arg := range args[1:] {
				on, err := parseBit(arg)
				if err != nil {
					return err
				}
				states = append(states, on)
			}
			if len(states) > modbus.MaxWriteCoils {
				return fmt.Errorf("at most %d coils can be written at once", modbus.MaxWriteCoils)
			}
			return withClient(cmd, flags, func(c *modbus.Client) error {
				outcome := c.WriteMultipleCoils(address, uint16(len(states)), modbus.PackCoils(states))
				return printOutcome(cmd.OutOrStdout(), outcome, formatRegister)
			})
		},
	}
}

func newWriteMultipleRegistersCmd(flags *connFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "write-multiple-registers ADDRESS VALUE...",
		Short: "Write consecutive holding registers (function 0x10)",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			address, err := parseWord(args[0])
			if err != nil {
				return err
			}
			values := make([]uint16, 0, len(args)-1)
			for _, arg := range args[1:] {
				v, err := parseWord(arg)
				if err != nil {
					return err
				}
				values = append(values, v)
			}
			return withClient(cmd, flags, func(c *modbus.Client) error {
				return printOutcome(cmd.OutOrStdout(), c.WriteMultipleRegisters(address, values), formatRegister)
			})
		},
	}
}

func parseAddressQuantity(args []string) (uint16, uint16, error) {
	address, err := parseWord(args[0])
	if err != nil {
		return 0, 0, err
	}
	quantity, err := parseWord(args[1])
	if err != nil {
		return 0, 0, err
	}
	return address, quantity, nil
}

// parseWord accepts decimal or 0x prefixed hex.
func parseWord(s string) (uint16, error) {
	v, err := strconv.ParseUint(s, 0, 16)
	if err != nil {
		return 0, fmt.Errorf("invalid 16-bit value %q", s)
	}
	return uint16(v), nil
}

func parseBit(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "1", "on", "true":
		return true, nil
	case "0", "off", "false":
		return false, nil
	}
	return false, fmt.Errorf("invalid coil state %q, use on or off", s)
}
