// Package stepup resolves two-factor step-up challenges raised by ledger
// mutations: prompt the operator for a second factor, retry the call once
// with the credential attached.
package stepup

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/payops-dev/payops/internal/ledger"
)

// Method is the second-factor mechanism announced in the credential header.
type Method string

const (
	MethodTOTP    Method = "totp"
	MethodYubikey Method = "yubikey_otp"
)

// Prompter acquires a one-time code from the operator. The call blocks the
// batch; only one prompt is ever outstanding.
type Prompter interface {
	PromptCode(ctx context.Context, method Method) (string, error)
}

// PrompterFunc is a function adapter for Prompter.
type PrompterFunc func(ctx context.Context, method Method) (string, error)

func (f PrompterFunc) PromptCode(ctx context.Context, method Method) (string, error) {
	return f(ctx, method)
}

// Operation is one ledger mutation. It is invoked with an empty credential
// first, and once more with "<method> <code>" if the first call raises a
// step-up challenge.
type Operation func(twoFactor string) error

// Authenticator wraps ledger mutations with the step-up retry protocol.
type Authenticator struct {
	method    Method
	prompter  Prompter
	reuseCode bool
	logger    *slog.Logger

	cachedCode string
}

// New creates an Authenticator. With reuseCode set, the first prompted code
// is threaded through every later protected call of the run instead of
// re-prompting; the safer default is one prompt per call.
func New(method Method, prompter Prompter, reuseCode bool, logger *slog.Logger) *Authenticator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Authenticator{
		method:    method,
		prompter:  prompter,
		reuseCode: reuseCode,
		logger:    logger,
	}
}

// Call invokes op, resolving at most one step-up challenge. Any other
// failure, and a second failure after the authenticated retry, propagate
// unchanged.
func (a *Authenticator) Call(ctx context.Context, op Operation) error {
	err := op("")
	if err == nil {
		return nil
	}
	if !ledger.IsStepUpRequired(err) {
		return err
	}

	code, err := a.code(ctx)
	if err != nil {
		return fmt.Errorf("acquiring second factor: %w", err)
	}

	return op(string(a.method) + " " + code)
}

func (a *Authenticator) code(ctx context.Context) (string, error) {
	if a.reuseCode && a.cachedCode != "" {
		return a.cachedCode, nil
	}

	code, err := a.prompter.PromptCode(ctx, a.method)
	if err != nil {
		return "", err
	}
	code = strings.TrimSpace(code)
	if code == "" {
		return "", fmt.Errorf("empty code")
	}

	if a.reuseCode {
		a.cachedCode = code
	}
	return code, nil
}

// TerminalPrompter reads codes from an interactive terminal.
type TerminalPrompter struct {
	In  io.Reader
	Out io.Writer
}

// PromptCode writes the prompt and reads one line.
func (p *TerminalPrompter) PromptCode(_ context.Context, method Method) (string, error) {
	label := "2FA Code: "
	if method == MethodYubikey {
		label = "Tap your YubiKey: "
	}
	if _, err := fmt.Fprint(p.Out, label); err != nil {
		return "", err
	}

	scanner := bufio.NewScanner(p.In)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return scanner.Text(), nil
}
