package entity

import (
	"errors"
	"fmt"
	"strings"

	"github.com/goccy/go-json"
)

// Sentinelas da taxonomia de erros do motor de agregação.
var (
	ErrInvalidTimeRange    = errors.New("invalid time range")
	ErrIdentityUnresolved  = errors.New("identity unresolved")
	ErrPartialFetchFailure = errors.New("partial fetch failure")
	ErrCurrencyMismatch    = errors.New("currency mismatch")
	ErrNoProfilesResolved  = errors.New("no profiles resolved")
	ErrEmptyProfileList    = errors.New("no profiles specified")
	ErrAccountAlreadySet   = errors.New("account id already resolved")
	ErrCreditExcluded      = errors.New("net credit excluded")
)

// ErrorKind classifies a non-fatal run error. CreditExcluded is informational:
// a service line with a negative net amount was left out of the totals.
type ErrorKind string

const (
	KindIdentityUnresolved  ErrorKind = "IdentityUnresolved"
	KindPartialFetchFailure ErrorKind = "PartialFetchFailure"
	KindCurrencyMismatch    ErrorKind = "CurrencyMismatch"
	KindNoProfilesResolved  ErrorKind = "NoProfilesResolved"
	KindCreditExcluded      ErrorKind = "CreditExcluded"
)

func (k ErrorKind) sentinel() error {
	switch k {
	case KindIdentityUnresolved:
		return ErrIdentityUnresolved
	case KindPartialFetchFailure:
		return ErrPartialFetchFailure
	case KindCurrencyMismatch:
		return ErrCurrencyMismatch
	case KindNoProfilesResolved:
		return ErrNoProfilesResolved
	case KindCreditExcluded:
		return ErrCreditExcluded
	default:
		return nil
	}
}

// RunError é um erro não fatal associado a um perfil, região e/ou período.
// Campos vazios significam que o erro não se restringe àquela dimensão.
type RunError struct {
	Kind    ErrorKind `json:"kind"`
	Profile string    `json:"profile,omitempty"`
	Region  string    `json:"region,omitempty"`
	Period  string    `json:"period,omitempty"`
	Err     error     `json:"-"`
}

// NewRunError builds a RunError; period may be nil when not applicable.
func NewRunError(kind ErrorKind, profile, region string, period *Period, err error) *RunError {
	re := &RunError{Kind: kind, Profile: profile, Region: region, Err: err}
	if period != nil {
		re.Period = period.String()
	}
	return re
}

func (e *RunError) Error() string {
	var parts []string
	if e.Profile != "" {
		parts = append(parts, "profile="+e.Profile)
	}
	if e.Region != "" {
		parts = append(parts, "region="+e.Region)
	}
	if e.Period != "" {
		parts = append(parts, "period="+e.Period)
	}
	msg := string(e.Kind)
	if len(parts) > 0 {
		msg += " [" + strings.Join(parts, " ") + "]"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Reason is the cause message without the classification prefix.
func (e *RunError) Reason() string {
	if e.Err == nil {
		return ""
	}
	return e.Err.Error()
}

// Unwrap expõe tanto a sentinela do tipo quanto a causa original.
func (e *RunError) Unwrap() []error {
	var errs []error
	if s := e.Kind.sentinel(); s != nil {
		errs = append(errs, s)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// MarshalJSON inclui a causa como texto.
func (e *RunError) MarshalJSON() ([]byte, error) {
	type alias RunError
	return json.Marshal(struct {
		*alias
		Reason string `json:"reason,omitempty"`
	}{alias: (*alias)(e), Reason: e.Reason()})
}

// CurrencyMismatchError descreve moedas conflitantes numa mesma consulta ou execução.
type CurrencyMismatchError struct {
	Expected string
	Got      string
}

func (e *CurrencyMismatchError) Error() string {
	return fmt.Sprintf("expected currency %s, got %s", e.Expected, e.Got)
}

func (e *CurrencyMismatchError) Unwrap() error { return ErrCurrencyMismatch }
