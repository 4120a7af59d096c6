package notify

import (
	"context"
	"log"
	"sync"
	"time"
)

// Dispatcher sends mail in the background. A failed send is logged and
// never reaches the caller; request cancellation does not stop a send.
type Dispatcher struct {
	sender  Sender
	links   Links
	timeout time.Duration
	wg      sync.WaitGroup
}

func NewDispatcher(sender Sender, links Links, timeout time.Duration) *Dispatcher {
	return &Dispatcher{sender: sender, links: links, timeout: timeout}
}

func (d *Dispatcher) SendOrderTrackingEmail(email string, trackingID int64) {
	msg, err := d.links.OrderTrackingMessage(email, trackingID)
	d.dispatch(msg, err)
}

func (d *Dispatcher) SendVerificationEmail(email, token string) {
	msg, err := d.links.VerificationMessage(email, token)
	d.dispatch(msg, err)
}

func (d *Dispatcher) SendPasswordResetEmail(email, token string) {
	msg, err := d.links.PasswordResetMessage(email, token)
	d.dispatch(msg, err)
}

func (d *Dispatcher) dispatch(msg Message, renderErr error) {
	if renderErr != nil {
		log.Printf("ERROR: %v", renderErr)
		return
	}
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		defer cancel()
		if err := d.sender.Send(ctx, msg); err != nil {
			log.Printf("WARN: Email %q to %s not delivered: %v", msg.Subject, msg.To, err)
		}
	}()
}

// Wait blocks until every in-flight send has finished.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}
