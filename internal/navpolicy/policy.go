// Package navpolicy decides what happens to every navigation or popup a
// rendered surface attempts: let it through, drop it, hand it to the
// desktop's external opener, or run an internal pseudo-command.
package navpolicy

import (
	"net/url"
	"strings"
)

// Surface says which kind of surface asked to navigate.
type Surface int

const (
	TopLevel Surface = iota
	Modal
)

func (s Surface) String() string {
	if s == Modal {
		return "modal"
	}
	return "top-level"
}

// Command is an internal pseudo-command carried as pos://<command>.
type Command string

const (
	CommandNone       Command = ""
	CommandExit       Command = "exit"
	CommandSettings   Command = "settings"
	CommandSupport    Command = "getsupport"
	CommandCloseModal Command = "closemodal"
)

// Verdict is the outcome of a decision.
type Verdict int

const (
	Allow Verdict = iota
	Deny
	External
	Invoke
)

func (v Verdict) String() string {
	switch v {
	case Allow:
		return "allow"
	case Deny:
		return "deny"
	case External:
		return "external"
	case Invoke:
		return "invoke"
	default:
		return "unknown"
	}
}

// Decision is returned by Engine.Decide. Command is set for Invoke; URL is
// the target to hand off for External.
type Decision struct {
	Verdict Verdict
	Command Command
	URL     string
}

// Engine applies the trust rules.
type Engine struct {
	scheme      string
	trustedRoot string
}

// New returns an engine trusting root and its subdomains, with pseudo
// commands under scheme (without "://").
func New(scheme, root string) *Engine {
	return &Engine{
		scheme:      strings.ToLower(strings.TrimSpace(scheme)),
		trustedRoot: strings.ToLower(strings.Trim(strings.TrimSpace(root), ".")),
	}
}

var commandsBySurface = map[Surface]map[Command]bool{
	TopLevel: {CommandExit: true, CommandSettings: true, CommandSupport: true},
	Modal:    {CommandCloseModal: true},
}

// Decide classifies a navigation or popup to rawURL from surface s.
func (e *Engine) Decide(s Surface, rawURL string) Decision {
	target := strings.TrimSpace(rawURL)

	if cmd, ok := e.pseudoCommand(target); ok {
		if commandsBySurface[s][cmd] {
			return Decision{Verdict: Invoke, Command: cmd}
		}
		// Unmatched pseudo-commands are left alone.
		return Decision{Verdict: Allow}
	}

	lower := strings.ToLower(target)
	if !strings.HasPrefix(lower, "http://") && !strings.HasPrefix(lower, "https://") {
		return Decision{Verdict: Allow}
	}

	u, err := url.Parse(target)
	if err != nil || u.Hostname() == "" {
		return Decision{Verdict: Deny}
	}
	if e.IsTrustedHost(u.Hostname()) {
		return Decision{Verdict: Allow}
	}
	return Decision{Verdict: External, URL: target}
}

// IsTrustedHost reports whether host is the trusted root or a subdomain.
func (e *Engine) IsTrustedHost(host string) bool {
	host = strings.TrimSuffix(strings.ToLower(host), ".")
	if e.trustedRoot == "" || host == "" {
		return false
	}
	return host == e.trustedRoot || strings.HasSuffix(host, "."+e.trustedRoot)
}

// pseudoCommand extracts <command> from scheme://<command>[/?#...].
func (e *Engine) pseudoCommand(target string) (Command, bool) {
	prefix := e.scheme + "://"
	if e.scheme == "" || len(target) < len(prefix) || !strings.EqualFold(target[:len(prefix)], prefix) {
		return CommandNone, false
	}
	rest := target[len(prefix):]
	if i := strings.IndexAny(rest, "/?#"); i >= 0 {
		rest = rest[:i]
	}
	return Command(strings.ToLower(rest)), true
}
