// Package command is the chat-facing adapter: it turns command lines into
// tagged command values and dispatches them to the services. The services
// never see raw text and the package never renders chat output.
package command

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

type Kind string

const (
	KindRegisterAdmin Kind = "register_admin"
	KindLogin         Kind = "login"
	KindCreateTeam    Kind = "create_team"
	KindAddMember     Kind = "add_member"
	KindListTeams     Kind = "list_teams"
	KindListMembers   Kind = "list_members"
	KindCheckIn       Kind = "check_in"
	KindCheckOut      Kind = "check_out"
	KindReport        Kind = "report"
)

var ErrUnknownCommand = errors.New("unknown command")

// UsageError reports a malformed command line along with the expected shape.
type UsageError struct {
	Usage string
}

func (e *UsageError) Error() string {
	return fmt.Sprintf("usage: %s", e.Usage)
}

// Command is a fully parsed, tagged command. Only the fields relevant to the
// Kind are set. The caller's own identity travels separately: it comes from
// the chat platform, not from the command line.
type Command struct {
	Kind Kind

	DisplayName string
	Password    string
	TeamName    string
	PlatformID  string
	Status      string
}

// Parse turns a chat command line (without any bot prefix) into a Command.
// Unknown verbs return ErrUnknownCommand; known verbs with missing arguments
// return a *UsageError.
func Parse(line string) (*Command, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil, ErrUnknownCommand
	}

	switch fields[0] {
	case "register":
		if len(fields) != 3 {
			return nil, &UsageError{Usage: "register <display-name> <password>"}
		}
		return &Command{Kind: KindRegisterAdmin, DisplayName: fields[1], Password: fields[2]}, nil

	case "login":
		if len(fields) != 2 {
			return nil, &UsageError{Usage: "login <password>"}
		}
		return &Command{Kind: KindLogin, Password: fields[1]}, nil

	case "team":
		if len(fields) != 3 || fields[1] != "create" {
			return nil, &UsageError{Usage: "team create <team-name>"}
		}
		return &Command{Kind: KindCreateTeam, TeamName: fields[2]}, nil

	case "member":
		if len(fields) != 5 || fields[1] != "add" {
			return nil, &UsageError{Usage: "member add <platform-id> <display-name> <team-name>"}
		}
		return &Command{Kind: KindAddMember, PlatformID: fields[2], DisplayName: fields[3], TeamName: fields[4]}, nil

	case "teams":
		if len(fields) != 1 {
			return nil, &UsageError{Usage: "teams"}
		}
		return &Command{Kind: KindListTeams}, nil

	case "members":
		if len(fields) != 2 {
			return nil, &UsageError{Usage: "members <team-name>"}
		}
		return &Command{Kind: KindListMembers, TeamName: fields[1]}, nil

	case "check-in":
		if len(fields) != 3 {
			return nil, &UsageError{Usage: "check-in <team-name> <status>"}
		}
		return &Command{Kind: KindCheckIn, TeamName: fields[1], Status: fields[2]}, nil

	case "check-out":
		if len(fields) != 1 {
			return nil, &UsageError{Usage: "check-out"}
		}
		return &Command{Kind: KindCheckOut}, nil

	case "attendance":
		if len(fields) != 2 {
			return nil, &UsageError{Usage: "attendance <team-name>"}
		}
		return &Command{Kind: KindReport, TeamName: fields[1]}, nil

	default:
		return nil, errors.Wrap(ErrUnknownCommand, fields[0])
	}
}
