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
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog"
)

// NewLogger returns a timestamped logger writing to w at the given level.
// Recognised levels are trace, debug, info, warn, error and disabled; an
// empty level means info. A nil writer yields a no-op logger.
func NewLogger(w io.Writer, level string) (zerolog.Logger, error) {
	if w == nil {
		return zerolog.Nop(), nil
	}
	lvl := zerolog.InfoLevel
	if level != "" {
		parsed, err := zerolog.ParseLevel(strings.ToLower(level))
		if err != nil {
			return zerolog.Nop(), fmt.Errorf("modbus: invalid log level %q: %w", level, err)
		}
		lvl = parsed
	}
	return zerolog.New(w).Level(lvl).With().Timestamp().Str("component", "modbus-tcp").Logger(), nil
}

// writerLogger backs SetLogger: everything down to debug goes to w.
func writerLogger(w io.Writer) zerolog.Logger {
	logger, _ := NewLogger(w, "debug")
	return logger
}
