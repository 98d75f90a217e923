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
	"io"
)

// Master defines the outcome based MODBUS TCP client operations.
type Master interface {
	// Connection API
	Connect(ctx context.Context) error // Connect opens the stream to the server
	Disconnect() bool                  // Disconnect closes the stream, false if none was open
	IsConnected() bool                 // IsConnected reports whether a stream is open
	GetLastModbusError() *ModbusError  // GetLastModbusError returns the last exception seen
	SetLogger(io.Writer)               // SetLogger sets the logger for the client
	// Standard methods
	ReadCoils(address, quantity uint16) CoilOutcome                             // ReadCoils reads multiple coils
	ReadDiscreteInputs(address, quantity uint16) CoilOutcome                    // ReadDiscreteInputs reads multiple discrete inputs
	ReadHoldingRegisters(address, quantity uint16) RegisterOutcome              // ReadHoldingRegisters reads multiple holding registers
	ReadInputRegisters(address, quantity uint16) RegisterOutcome                // ReadInputRegisters reads multiple input registers
	WriteSingleCoil(address, value uint16) CoilOutcome                          // WriteSingleCoil writes a single coil
	WriteSingleRegister(address, value uint16) RegisterOutcome                  // WriteSingleRegister writes a single register
	WriteMultipleCoils(address, quantity uint16, packed []byte) RegisterOutcome // WriteMultipleCoils writes multiple coils
	WriteMultipleRegisters(address uint16, values []uint16) RegisterOutcome     // WriteMultipleRegisters writes multiple registers
}

// MasterAccess is the plain value view of a Master. Failures collapse into
// empty slices and false.
type MasterAccess interface {
	ReadCoils(address, quantity uint16) []bool
	ReadDiscreteInputs(address, quantity uint16) []bool
	ReadHoldingRegisters(address, quantity uint16) []uint16
	ReadInputRegisters(address, quantity uint16) []uint16
	WriteSingleCoil(address uint16, value CoilValue) bool
	WriteSingleRegister(address, value uint16) bool
	WriteMultipleCoils(address uint16, values []CoilValue) bool
	WriteMultipleRegisters(address uint16, values []uint16) bool
}

var (
	_ Master       = (*Client)(nil)
	_ MasterAccess = (*Access)(nil)
)
