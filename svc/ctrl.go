package svc

import (
	"os"
	"os/signal"
	"time"
)

// Ctrl contains StopChan that allows to terminate all the services that listen the channel.
type Ctrl struct {
	StopChan chan struct{}
}

// Wait blocks until StopChan is closed or an interrupt arrives, then
// pauses for t to give all the services time to shut down gracefully.
func (c *Ctrl) Wait(t time.Duration) {
	inter := make(chan os.Signal, 1)
	signal.Notify(inter, os.Interrupt)

	select {
	case <-inter:
		close(c.StopChan)
	case <-c.StopChan:
	}

	<-time.NewTimer(t).C
}

// Terminate closes StopChan to signal all the services to shutdown.
func (c *Ctrl) Terminate() {
	select {
	case <-c.StopChan:
	default:
		close(c.StopChan)
	}
}
