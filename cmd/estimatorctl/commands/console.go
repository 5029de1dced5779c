package commands

import (
	"fmt"
	"io"
	"sync"

	"github.com/ru-digital/product-estimator/internal/estimator"
)

// console renders every page hook as a line of text.
type console struct {
	mu  sync.Mutex
	out io.Writer
}

func (c *console) printf(format string, args ...interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.out, format+"\n", args...)
}

func (c *console) ui(withModal bool) estimator.UI {
	ui := estimator.UI{
		Controls:  []estimator.Control{consoleControl{c}},
		Surface:   consoleSurface{c},
		Messages:  consoleSink{c},
		Widgets:   consoleWidgets{c},
		Navigator: consoleNavigator{c},
	}
	if withModal {
		ui.Modal = func() (estimator.Modal, error) { return consoleModal{c}, nil }
	}
	return ui
}

type consoleControl struct{ c *console }

func (k consoleControl) SetEnabled(enabled bool) {
	if enabled {
		k.c.printf("[button] enabled")
		return
	}
	k.c.printf("[button] disabled")
}

type consoleSurface struct{ c *console }

func (s consoleSurface) SetLoading(loading bool) {
	if loading {
		s.c.printf("[surface] loading...")
	}
}

func (s consoleSurface) Replace(html string) { s.c.printf("[surface] %s", html) }
func (s consoleSurface) Clear()              { s.c.printf("[surface] cleared") }

type consoleWidgets struct{ c *console }

func (w consoleWidgets) InitWidgets(widgets []estimator.Widget) {
	for _, wd := range widgets {
		w.c.printf("[widget] %s product=%d", wd.Kind, wd.ProductID)
	}
}

type consoleSink struct{ c *console }

func (s consoleSink) Show(m estimator.Message)   { s.c.printf("[%s] %s", m.Kind, m.Text) }
func (s consoleSink) Remove(m estimator.Message) {}

type consoleModal struct{ c *console }

func (m consoleModal) Open(id int64) error {
	m.c.printf("[modal] opened for product %d", id)
	return nil
}

func (m consoleModal) Retarget(id int64) { m.c.printf("[modal] now showing product %d", id) }
func (m consoleModal) Close()            { m.c.printf("[modal] closed") }

type consoleNavigator struct{ c *console }

func (n consoleNavigator) Navigate(url string) { n.c.printf("[navigate] %s", url) }
