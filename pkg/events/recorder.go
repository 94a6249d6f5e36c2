package events

import (
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/darianrosebrook/agent-resilience-go/pkg/log"
)

// Recorder mirrors every bus notification to the structured log, so a run
// leaves a readable trail of its event stream without any extra wiring in
// the drivers.
type Recorder struct {
	sub  *Subscription
	wg   sync.WaitGroup
	once sync.Once
}

// NewRecorder subscribes to the bus and starts mirroring notifications
// until Stop is called or the bus closes.
func NewRecorder(bus *Bus, reasons ...string) *Recorder {
	r := &Recorder{
		sub: bus.Subscribe(64, reasons...),
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		for notification := range r.sub.Events() {
			logNotification(notification)
		}
	}()

	return r
}

// Stop unsubscribes from the bus and waits for the mirror loop to drain.
func (r *Recorder) Stop() {
	r.once.Do(func() {
		r.sub.Close()
	})
	r.wg.Wait()
}

func logNotification(notification Notification) {
	fields := logrus.Fields{
		"Kind":     notification.Kind,
		"Resource": notification.Resource,
		"Count":    notification.Count,
	}
	for k, v := range notification.Fields {
		fields[k] = v
	}

	switch notification.Type {
	case "Warning":
		log.WarnWithValues("[Event]: "+notification.Reason+": "+notification.Message, fields)
	default:
		log.InfoWithValues("[Event]: "+notification.Reason+": "+notification.Message, fields)
	}
}
