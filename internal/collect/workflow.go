package collect

import (
	"context"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/locker-client/internal/api/dto"
	apperrors "github.com/spec-kit/locker-client/pkg/util"
)

// CollectAPI is the slice of the remote API the workflow needs.
type CollectAPI interface {
	RequestOTP(ctx context.Context, lockerID, contact string) error
	Collect(ctx context.Context, lockerID, otp string) (dto.CollectResponse, error)
}

// State identifies a workflow position.
type State int

const (
	// AwaitingIdentifier collects the locker id and contact value.
	AwaitingIdentifier State = iota
	// AwaitingOtp collects the 6-digit one-time password under a countdown.
	AwaitingOtp
	// Completed holds the collection result. Terminal until Reset.
	Completed
)

// CountdownSeconds is the client-side OTP countdown. It is a UX aid only;
// the server remains the authority on actual expiry.
const CountdownSeconds = 300

// OTPLength is the exact number of digits a submittable OTP must have.
const OTPLength = 6

var (
	emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	phonePattern = regexp.MustCompile(`^\+?\d{1,3}[-. ]?\(?\d{3}\)?[-. ]?\d{3}[-. ]?\d{4}$`)
)

// Snapshot is a read-only view of the workflow for rendering.
type Snapshot struct {
	State     State
	LockerID  string
	Contact   string
	OTP       string
	Countdown int
	Result    *dto.CollectResponse
	Err       error
}

// Workflow is the OTP-gated state machine that turns a locker id and a
// contact value into a completed collection. Errors are transient
// annotations on the current state, never a state of their own, and no
// transition succeeds on client-side validation alone: every forward step is
// confirmed by the server.
type Workflow struct {
	api    CollectAPI
	logger *zap.Logger

	mu       sync.Mutex
	state    State
	lockerID string
	contact  string
	otp      string

	countdown int
	tickEvery time.Duration
	timerStop chan struct{}

	result  *dto.CollectResponse
	lastErr error

	// gen invalidates in-flight network results when the machine has moved
	// on (back or reset) before they arrive.
	gen uint64
}

// NewWorkflow builds a workflow in AwaitingIdentifier.
func NewWorkflow(api CollectAPI, logger *zap.Logger) *Workflow {
	return &Workflow{api: api, logger: logger, tickEvery: time.Second}
}

// SetLockerID records the locker identifier input.
func (w *Workflow) SetLockerID(id string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state == AwaitingIdentifier {
		w.lockerID = strings.TrimSpace(id)
	}
}

// SetContact records the contact input.
func (w *Workflow) SetContact(contact string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state == AwaitingIdentifier {
		w.contact = strings.TrimSpace(contact)
	}
}

// SetOTP replaces the OTP buffer, keeping only digits and at most OTPLength
// of them.
func (w *Workflow) SetOTP(input string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state != AwaitingOtp {
		return
	}
	digits := make([]byte, 0, OTPLength)
	for i := 0; i < len(input) && len(digits) < OTPLength; i++ {
		if input[i] >= '0' && input[i] <= '9' {
			digits = append(digits, input[i])
		}
	}
	w.otp = string(digits)
}

// SubmitIdentifier validates the inputs locally and requests an OTP. On
// success the machine enters AwaitingOtp and the countdown starts. A
// validation failure never dispatches; a server failure keeps the machine in
// AwaitingIdentifier with the error surfaced.
func (w *Workflow) SubmitIdentifier(ctx context.Context) error {
	w.mu.Lock()
	if w.state != AwaitingIdentifier {
		w.mu.Unlock()
		return apperrors.NewValidationError("state", "not awaiting an identifier")
	}
	lockerID, contact := w.lockerID, w.contact
	gen := w.gen
	w.mu.Unlock()

	if err := validateLockerID(lockerID); err != nil {
		w.recordErr(gen, err)
		return err
	}
	if err := validateContact(contact); err != nil {
		w.recordErr(gen, err)
		return err
	}

	err := w.api.RequestOTP(ctx, lockerID, contact)

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.gen != gen || w.state != AwaitingIdentifier {
		// Machine was reset while the request was in flight.
		return nil
	}
	if err != nil {
		w.lastErr = err
		return err
	}

	w.state = AwaitingOtp
	w.otp = ""
	w.lastErr = nil
	w.countdown = CountdownSeconds
	w.startCountdownLocked()
	w.logger.Info("otp requested", zap.String("locker_id", lockerID))
	return nil
}

// SubmitOTP redeems the buffered OTP. Enabled only with exactly OTPLength
// digits. Success completes the machine carrying the server's result
// payload; failure keeps AwaitingOtp with the error surfaced and the
// countdown untouched.
func (w *Workflow) SubmitOTP(ctx context.Context) error {
	w.mu.Lock()
	if w.state != AwaitingOtp {
		w.mu.Unlock()
		return apperrors.NewValidationError("state", "not awaiting an otp")
	}
	lockerID, otp := w.lockerID, w.otp
	gen := w.gen
	w.mu.Unlock()

	if len(otp) != OTPLength {
		err := apperrors.NewValidationError("otp", "must be exactly 6 digits")
		w.recordErr(gen, err)
		return err
	}

	result, err := w.api.Collect(ctx, lockerID, otp)

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.gen != gen || w.state != AwaitingOtp {
		return nil
	}
	if err != nil {
		w.lastErr = err
		return err
	}

	w.state = Completed
	w.result = &result
	w.lastErr = nil
	w.stopCountdownLocked()
	w.logger.Info("item collected", zap.String("locker_id", lockerID), zap.Float64("total_amount", result.TotalAmount))
	return nil
}

// Back returns from AwaitingOtp to AwaitingIdentifier, discarding the OTP
// buffer and countdown while preserving the locker id and contact.
func (w *Workflow) Back() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state != AwaitingOtp {
		return
	}
	w.gen++
	w.state = AwaitingIdentifier
	w.otp = ""
	w.countdown = 0
	w.lastErr = nil
	w.stopCountdownLocked()
}

// Reset returns the whole machine to a fresh AwaitingIdentifier with every
// field cleared.
func (w *Workflow) Reset() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.gen++
	w.state = AwaitingIdentifier
	w.lockerID = ""
	w.contact = ""
	w.otp = ""
	w.countdown = 0
	w.result = nil
	w.lastErr = nil
	w.stopCountdownLocked()
}

// Snapshot returns the current view of the machine.
func (w *Workflow) Snapshot() Snapshot {
	w.mu.Lock()
	defer w.mu.Unlock()
	return Snapshot{
		State:     w.state,
		LockerID:  w.lockerID,
		Contact:   w.contact,
		OTP:       w.otp,
		Countdown: w.countdown,
		Result:    w.result,
		Err:       w.lastErr,
	}
}

// recordErr surfaces err on the current state unless the machine moved on.
func (w *Workflow) recordErr(gen uint64, err error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.gen == gen {
		w.lastErr = err
	}
}

// startCountdownLocked spawns the ticking goroutine. The previous timer, if
// any, is stopped first; leaving AwaitingOtp by any path cancels it.
func (w *Workflow) startCountdownLocked() {
	w.stopCountdownLocked()
	stop := make(chan struct{})
	w.timerStop = stop

	go func() {
		ticker := time.NewTicker(w.tickEvery)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				w.mu.Lock()
				if w.timerStop != stop {
					w.mu.Unlock()
					return
				}
				if w.countdown > 0 {
					w.countdown--
				}
				done := w.countdown == 0
				w.mu.Unlock()
				if done {
					return
				}
			}
		}
	}()
}

func (w *Workflow) stopCountdownLocked() {
	if w.timerStop != nil {
		close(w.timerStop)
		w.timerStop = nil
	}
}

// validateLockerID requires the canonical 36-character UUID text form.
func validateLockerID(id string) error {
	if len(id) != 36 {
		return apperrors.NewValidationError("locker_id", "must be a canonical UUID")
	}
	if _, err := uuid.Parse(id); err != nil {
		return apperrors.NewValidationError("locker_id", "must be a canonical UUID")
	}
	return nil
}

// validateContact accepts an email address or a phone number.
func validateContact(contact string) error {
	if emailPattern.MatchString(contact) || phonePattern.MatchString(contact) {
		return nil
	}
	return apperrors.NewValidationError("contact", "must be an email address or phone number")
}
