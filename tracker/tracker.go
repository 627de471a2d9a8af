package tracker

import (
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	elpf "github.com/jjwakefield/ELPF"
	"github.com/jjwakefield/ELPF/hypothesiser"
	"github.com/jjwakefield/ELPF/particle"
	"github.com/jjwakefield/ELPF/state"
)

// Tracker orchestrates independent particle filter tracks over a shared
// detection stream. Each step it predicts every track forward, gates the
// detection set per track through the hypothesiser, then runs the per-track
// updates concurrently. Tracks share nothing mutable: each owns its filter
// and therefore its resampling source, and the shared models are read-only
// during updates.
type Tracker struct {
	// hyp gates detections per track; if nil every detection is fed to
	// every track
	hyp *hypothesiser.Hypothesiser
	// entries pair each filter with its track history
	entries []*entry
}

type entry struct {
	filter *particle.Filter
	track  *state.Track
}

// New creates a new Tracker. hyp may be nil, in which case gating is skipped
// and every track is updated with the full detection set.
func New(hyp *hypothesiser.Hypothesiser) *Tracker {
	return &Tracker{hyp: hyp}
}

// Add registers a new track with the given filter and prior belief and
// returns it.
func (t *Tracker) Add(f *particle.Filter, prior *state.ParticleState) *state.Track {
	track := state.NewTrack(prior)
	t.entries = append(t.entries, &entry{filter: f, track: track})

	return track
}

// Step advances every track by dt and updates it with its gated share of the
// detection set. Predictions run sequentially so each transition model's
// noise draws stay ordered; updates fan out concurrently, one goroutine per
// track. Each track's posterior is appended to its history.
// It returns error if there are no tracks or if any predict, gate or update
// fails.
func (t *Tracker) Step(detections []elpf.Detection, dt time.Duration) error {
	if len(t.entries) == 0 {
		return fmt.Errorf("no tracks registered")
	}

	priors := make([]*state.ParticleState, len(t.entries))
	for i, e := range t.entries {
		prior, err := e.filter.Predict(e.track.Latest(), dt)
		if err != nil {
			return fmt.Errorf("track %s predict failed: %v", e.track.ID(), err)
		}
		priors[i] = prior
	}

	hypotheses := make([][]elpf.Detection, len(t.entries))
	if t.hyp != nil {
		var err error
		hypotheses, err = t.hyp.Hypothesise(priors, detections)
		if err != nil {
			return fmt.Errorf("hypothesise failed: %v", err)
		}
	} else {
		for i := range hypotheses {
			hypotheses[i] = detections
		}
	}

	posteriors := make([]*state.ParticleState, len(t.entries))
	g := new(errgroup.Group)
	for i, e := range t.entries {
		i, e := i, e
		g.Go(func() error {
			post, err := e.filter.Update(priors[i], hypotheses[i])
			if err != nil {
				return fmt.Errorf("track %s update failed: %v", e.track.ID(), err)
			}
			posteriors[i] = post

			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for i, e := range t.entries {
		e.track.Append(posteriors[i])
	}

	return nil
}

// Tracks returns the registered tracks in registration order.
func (t *Tracker) Tracks() []*state.Track {
	tracks := make([]*state.Track, len(t.entries))
	for i, e := range t.entries {
		tracks[i] = e.track
	}

	return tracks
}
