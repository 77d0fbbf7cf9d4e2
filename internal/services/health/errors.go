package health

import (
	"errors"
	"fmt"
	"time"
)

var errNeverSucceeded = errors.New("no successful run yet")

type staleError struct {
	age time.Duration
}

func (e staleError) Error() string {
	return fmt.Sprintf("last success %s ago", e.age)
}
