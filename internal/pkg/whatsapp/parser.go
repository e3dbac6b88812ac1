// Package whatsapp implements the chat command channel: parsing of inbound
// text commands and replies through the Meta Graph API.
package whatsapp

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

// Command kinds understood by the chat channel.
const (
	CommandRate    = "rate"
	CommandCost    = "cost"
	CommandBuy     = "buy"
	CommandUnknown = "unknown"
)

var (
	ErrEmptyMessage = errors.New("whatsapp: empty message")
	ErrBadUnits     = errors.New("whatsapp: units must be a positive number")
	ErrMissingMeter = errors.New("whatsapp: buy requires a meter id, e.g. buy 10 for MTR1234567")
)

// Command is one parsed chat instruction.
type Command struct {
	Kind     string
	Units    decimal.Decimal
	DeviceID string // set when the message named a meter
}

// ParseCommand interprets an inbound message body. Supported forms:
//
//	rate
//	cost <units>
//	cost <units> for <meter-id>
//	buy <units> for <meter-id>
//
// Matching is case-insensitive and whitespace-tolerant. Anything else parses
// as CommandUnknown without error so the caller can send a help reply.
func ParseCommand(body string) (Command, error) {
	fields := strings.Fields(strings.ToLower(strings.TrimSpace(body)))
	if len(fields) == 0 {
		return Command{}, ErrEmptyMessage
	}

	switch fields[0] {
	case CommandRate:
		return Command{Kind: CommandRate}, nil

	case CommandCost:
		if len(fields) < 2 {
			return Command{}, ErrBadUnits
		}
		units, err := parsePositiveUnits(fields[1])
		if err != nil {
			return Command{}, err
		}
		cmd := Command{Kind: CommandCost, Units: units}
		if deviceID, ok := forClause(fields[2:]); ok {
			cmd.DeviceID = deviceID
		}
		return cmd, nil

	case CommandBuy:
		if len(fields) < 2 {
			return Command{}, ErrBadUnits
		}
		units, err := parsePositiveUnits(fields[1])
		if err != nil {
			return Command{}, err
		}
		deviceID, ok := forClause(fields[2:])
		if !ok {
			return Command{}, ErrMissingMeter
		}
		return Command{Kind: CommandBuy, Units: units, DeviceID: deviceID}, nil

	default:
		return Command{Kind: CommandUnknown}, nil
	}
}

// HelpText is the reply for unrecognized commands.
func HelpText() string {
	return "Commands:\n" +
		"rate - show the current price per unit\n" +
		"cost <units> - price a purchase\n" +
		"buy <units> for <meter-id> - buy units for a meter"
}

func parsePositiveUnits(raw string) (decimal.Decimal, error) {
	units, err := decimal.NewFromString(raw)
	if err != nil || !units.IsPositive() {
		return decimal.Zero, ErrBadUnits
	}
	return units, nil
}

// forClause extracts the meter id from a trailing "for <id>" clause. Meter
// ids are stored uppercase.
func forClause(fields []string) (string, bool) {
	if len(fields) < 2 || fields[0] != "for" {
		return "", false
	}
	return strings.ToUpper(fields[1]), true
}
