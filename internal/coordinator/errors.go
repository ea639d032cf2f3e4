package coordinator

import (
	"errors"
	"fmt"
)

// ErrClosed is returned when operating on a closed coordinator.
var ErrClosed = errors.New("coordinator closed")

// ErrDuplicateView indicates a Subscribe with a viewID already in use.
type ErrDuplicateView struct {
	View string
}

func (e *ErrDuplicateView) Error() string {
	return fmt.Sprintf("view %q is already subscribed", e.View)
}
