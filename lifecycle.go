package asupersync

import "sync"

// closeSequence runs an ordered list of close steps exactly once, even
// under concurrent calls. It generalizes the teacher's lifecycleCoordinator
// — originally a fixed seven-step worker-pool shutdown sequence hand-wired
// to specific channels and wait groups — into a configurable ordered
// pipeline any caller composes from its own step closures. NewRuntime uses
// it for runtime shutdown (closing the scheduler); region close does not go
// through it.
type closeSequence struct {
	steps []func()
	once  sync.Once
}

// newCloseSequence builds a closeSequence that runs steps in order on its
// first run() call.
func newCloseSequence(steps ...func()) *closeSequence {
	return &closeSequence{steps: steps}
}

// run executes every step in order, exactly once.
func (c *closeSequence) run() {
	c.once.Do(func() {
		for _, step := range c.steps {
			if step != nil {
				step()
			}
		}
	})
}
