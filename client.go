// Copyright (C) 2024  wwhai
//
// This program is free software; you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation; either version 2 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License along
// with this program; if not, see <https://www.gnu.org/licenses/>.

package modbus

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/netip"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// Diagnostics carried by Bad outcomes for local failures.
const (
	MsgInvalidTelegram     = "created modbus telegram is invalid"
	MsgInvalidResponseData = "modbus response data is invalid"
	MsgClientBusy          = "modbus client is busy"
)

// Client is a MODBUS TCP master bound to one server. It runs one
// transaction at a time; a call that overlaps another returns a Bad outcome
// wrapping ErrClientBusy.
type Client struct {
	address          string
	port             uint16
	unitID           uint8
	timeout          time.Duration
	mode             ReadMode
	decodeExceptions bool
	dialer           Dialer
	logger           zerolog.Logger
	recorder         FrameRecorder
	capturePath      string

	mu              sync.Mutex // guards the fields below
	transporter     *TCPTransporter
	capture         *CaptureRecorder // owned, opened from capturePath
	transactionID   uint16
	lastModbusError *ModbusError

	busy atomic.Bool
}

// NewClient creates a client for address ("ip" or "ip:port"). It does not
// connect.
func NewClient(address string, opts ...Option) *Client {
	c := &Client{
		address:       address,
		port:          DefaultTCPPort,
		unitID:        DefaultUnitID,
		timeout:       DefaultTimeout,
		mode:          ReadFixed,
		logger:        zerolog.Nop(),
		transactionID: 1,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.dialer == nil {
		c.dialer = defaultDialer(c.timeout)
	}
	return c
}

// NewClientFromConfig creates a client from config, logging to logOutput at the
// configured level.
func NewClientFromConfig(config *Config, logOutput io.Writer, opts ...Option) (*Client, error) {
	cfg := *config
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	mode, err := ParseReadMode(cfg.ReadMode)
	if err != nil {
		return nil, err
	}
	logger, err := NewLogger(logOutput, cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	base := []Option{
		WithPort(cfg.portOrDefault()),
		WithUnitID(cfg.Unit()),
		WithTimeout(cfg.Timeout()),
		WithReadMode(mode),
		WithExceptionDecoding(cfg.DecodeExceptions),
		WithLogger(logger),
	}
	if cfg.CaptureFile != "" {
		base = append(base, WithCaptureFile(cfg.CaptureFile))
	}
	return NewClient(cfg.Address, append(base, opts...)...), nil
}

// SetLogger sends debug output to w; nil silences the client.
func (c *Client) SetLogger(w io.Writer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.logger = writerLogger(w)
	if c.transporter != nil {
		c.transporter.SetLogger(c.logger)
	}
}

// Connect dials the server. Calling it on a connected client is a no-op.
func (c *Client) Connect(ctx context.Context) error {
	target, err := ParseNetworkAddress(c.address, c.port)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.transporter != nil {
		return nil
	}

	conn, err := dialTCP(ctx, c.dialer, target)
	if err != nil {
		c.logger.Warn().Err(err).Str("target", target.String()).Msg("connect failed")
		return err
	}
	transporter := NewTCPTransporter(conn, c.timeout, c.mode, c.logger)

	switch {
	case c.recorder != nil:
		transporter.SetRecorder(c.recorder)
	case c.capturePath != "":
		local, ok := addrPortOf(conn.LocalAddr())
		if !ok {
			local = netip.AddrPortFrom(netip.IPv4Unspecified(), 0)
		}
		remote, ok := addrPortOf(conn.RemoteAddr())
		if !ok {
			remote = target
		}
		capture, err := CreateCaptureFile(c.capturePath, local, remote)
		if err != nil {
			conn.Close()
			return err
		}
		c.capture = capture
		transporter.SetRecorder(capture)
	}

	c.transporter = transporter
	c.logger.Debug().Str("target", target.String()).Str("local", transporter.LocalAddr()).Stringer("read_mode", c.mode).Msg("connected")
	return nil
}

// Disconnect closes the stream. It returns false when no stream was open or
// closing it failed.
func (c *Client) Disconnect() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.transporter == nil {
		return false
	}
	err := c.transporter.Close()
	c.transporter = nil
	if c.capture != nil {
		if cerr := c.capture.Close(); cerr != nil {
			c.logger.Warn().Err(cerr).Msg("closing capture failed")
		}
		c.capture = nil
	}
	if err != nil {
		c.logger.Warn().Err(err).Msg("disconnect failed")
		return false
	}
	c.logger.Debug().Msg("disconnected")
	return true
}

func (c *Client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.transporter != nil
}

// TransactionID returns the identifier the next request will carry.
func (c *Client) TransactionID() uint16 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.transactionID
}

// GetLastModbusError returns the last function code mismatch or exception
// seen by this client, or nil.
func (c *Client) GetLastModbusError() *ModbusError {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastModbusError
}

func (c *Client) UnitID() uint8 { return c.unitID }

// advanceTransactionID moves to the next identifier, skipping zero.
func (c *Client) advanceTransactionID() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.transactionID == 0xFFFF {
		c.transactionID = 1
	} else {
		c.transactionID++
	}
}

// ReadCoils reads quantity coils (function 0x01).
func (c *Client) ReadCoils(address, quantity uint16) CoilOutcome {
	return execute(c, func(txn uint16) (*Telegram, error) {
		return BuildReadCoils(txn, c.unitID, address, quantity)
	}, func(payload []byte) []bool {
		return ParseBits(payload, quantity)
	})
}

// ReadDiscreteInputs reads quantity discrete inputs (function 0x02).
func (c *Client) ReadDiscreteInputs(address, quantity uint16) CoilOutcome {
	return execute(c, func(txn uint16) (*Telegram, error) {
		return BuildReadDiscreteInputs(txn, c.unitID, address, quantity)
	}, func(payload []byte) []bool {
		return ParseBits(payload, quantity)
	})
}

// ReadHoldingRegisters reads quantity holding registers (function 0x03).
func (c *Client) ReadHoldingRegisters(address, quantity uint16) RegisterOutcome {
	return execute(c, func(txn uint16) (*Telegram, error) {
		return BuildReadHoldingRegisters(txn, c.unitID, address, quantity)
	}, ParseRegisters)
}

// ReadInputRegisters reads quantity input registers (function 0x04).
func (c *Client) ReadInputRegisters(address, quantity uint16) RegisterOutcome {
	return execute(c, func(txn uint16) (*Telegram, error) {
		return BuildReadInputRegisters(txn, c.unitID, address, quantity)
	}, ParseRegisters)
}

// WriteSingleCoil writes one coil (function 0x05). value must be
// CoilWordOff or CoilWordOn; the outcome holds the echoed state.
func (c *Client) WriteSingleCoil(address, value uint16) CoilOutcome {
	return execute(c, func(txn uint16) (*Telegram, error) {
		return BuildWriteSingleCoil(txn, c.unitID, address, value)
	}, ParseSingleCoilEcho)
}

// WriteSingleRegister writes one register (function 0x06). The outcome
// holds the echoed address and value.
func (c *Client) WriteSingleRegister(address, value uint16) RegisterOutcome {
	return execute(c, func(txn uint16) (*Telegram, error) {
		return BuildWriteSingleRegister(txn, c.unitID, address, value)
	}, ParseWriteEcho)
}

// WriteMultipleCoils writes quantity coils packed LSB first (function 0x0F).
// The outcome holds the echoed address and quantity.
func (c *Client) WriteMultipleCoils(address, quantity uint16, packed []byte) RegisterOutcome {
	return execute(c, func(txn uint16) (*Telegram, error) {
		return BuildWriteMultipleCoils(txn, c.unitID, address, quantity, packed)
	}, ParseWriteEcho)
}

// WriteMultipleRegisters writes values starting at address (function 0x10).
// The outcome holds the echoed address and quantity.
func (c *Client) WriteMultipleRegisters(address uint16, values []uint16) RegisterOutcome {
	return execute(c, func(txn uint16) (*Telegram, error) {
		return BuildWriteMultipleRegisters(txn, c.unitID, address, values)
	}, ParseWriteEcho)
}

// execute runs one transaction: build and validate the request, exchange it,
// correlate the response and parse its payload.
func execute[T bool | uint16](c *Client, build func(txn uint16) (*Telegram, error), parse func([]byte) []T) Outcome[T] {
	watch := StartStopwatch()
	if !c.busy.CompareAndSwap(false, true) {
		return badMessage[T](MsgClientBusy, ErrClientBusy)
	}
	defer c.busy.Store(false)

	c.mu.Lock()
	txn := c.transactionID
	transporter := c.transporter
	logger := c.logger
	c.mu.Unlock()

	request, err := build(txn)
	if err != nil {
		if errors.Is(err, ErrInvalidTelegram) {
			logger.Error().Err(err).Uint16("txn", txn).Msg("request construction failed")
			return badMessage[T](MsgInvalidTelegram, err)
		}
		logger.Warn().Err(err).Msg("request rejected")
		return badMessage[T](err.Error(), err)
	}
	if transporter == nil {
		logger.Debug().Stringer("function", request.FunctionCode()).Msg("not connected")
		return noneOutcome[T]()
	}

	response, _, err := transporter.Exchange(request)
	c.advanceTransactionID()
	if err != nil {
		logger.Warn().Err(err).Uint16("txn", txn).Stringer("function", request.FunctionCode()).Msg("exchange failed")
		if errors.Is(err, ErrInvalidTelegram) || errors.Is(err, ErrNoExpectedLength) {
			return badMessage[T](MsgInvalidTelegram, err)
		}
		return badMessage[T](err.Error(), err)
	}
	if response.TransactionID() != txn {
		logger.Debug().Uint16("txn", txn).Uint16("response_txn", response.TransactionID()).Msg("transaction identifier differs")
	}

	if !VerifyFunctionCode(request, response) {
		exception := uint8(ExceptionIllegalFunction)
		if c.decodeExceptions && response.FunctionCode().IsException() {
			if code, ok := ExtractByte(response.payload, 0); ok {
				exception = code
			}
		}
		merr := &ModbusError{FunctionCode: response.FunctionCode(), ExceptionCode: ExceptionCode(exception)}
		c.mu.Lock()
		c.lastModbusError = merr
		c.mu.Unlock()
		logger.Warn().Err(merr).Uint16("txn", txn).Msg("function code mismatch")
		return badOutcome[T](Bad{
			ErrorCode:     uint8(response.FunctionCode()),
			ExceptionCode: exception,
			Message:       ExceptionMessage(exception),
			Err:           merr,
		})
	}

	data := parse(response.payload)
	if len(data) == 0 {
		err := fmt.Errorf("%w: %s payload % X", ErrInvalidResponseData, response.FunctionCode(), response.payload)
		logger.Warn().Err(err).Uint16("txn", txn).Msg("response rejected")
		return badMessage[T](MsgInvalidResponseData, err)
	}
	elapsed := watch.ElapsedMilliseconds()
	logger.Debug().Uint16("txn", txn).Stringer("function", request.FunctionCode()).Uint64("elapsed_ms", elapsed).Msg("transaction complete")
	return goodOutcome(data, elapsed)
}
