package authstate

import (
	"context"
	"time"

	"github.com/dmitrijs2005/dailybread/internal/client/models"
	"github.com/dmitrijs2005/dailybread/internal/common"
	"golang.org/x/sync/errgroup"
)

func cacheKeys() []string { return common.OnboardingCacheKeys }

// cacheHint is what the local cache held when a reconciliation started.
type cacheHint struct {
	onboarded    string
	hasOnboarded bool
	prefs        string
	hasPrefs     bool
}

// ticket identifies one reconciliation: who it was for and when it was issued.
type ticket struct {
	seq    uint64
	epoch  uint64
	userID string
	reason string
}

type result struct {
	ticket
	hint   cacheHint
	status models.OnboardingStatus
	err    error
}

// reconcile issues a fetch for the current user. settled, if set, is closed
// once the result has been committed or dropped. Must run on the loop.
func (e *Engine) reconcile(reason string, settled chan struct{}) {
	e.seq++
	t := ticket{seq: e.seq, epoch: e.epoch, userID: e.user.ID, reason: reason}
	e.log.Debug(e.ctx, "onboarding reconciliation issued", "user_id", t.userID, "seq", t.seq, "reason", reason)

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		r := e.gather(e.ctx, t)
		e.post(func() {
			applied := e.commit(r)
			if e.resultHook != nil {
				e.resultHook(r, applied)
			}
			if settled != nil {
				close(settled)
			}
		})
	}()
}

// gather reads the cache hint and fetches the remote record concurrently.
func (e *Engine) gather(ctx context.Context, t ticket) result {
	r := result{ticket: t}

	var g errgroup.Group
	g.Go(func() error {
		r.hint.onboarded, r.hint.hasOnboarded = e.cache.Get(ctx, common.CacheKeyOnboarded)
		r.hint.prefs, r.hint.hasPrefs = e.cache.Get(ctx, common.CacheKeyPreferences)
		return nil
	})
	g.Go(func() error {
		var err error
		r.status, err = e.fetch(ctx, t)
		return err
	})
	r.err = g.Wait()
	return r
}

func (e *Engine) fetch(ctx context.Context, t ticket) (models.OnboardingStatus, error) {
	for attempt := 1; ; attempt++ {
		st, err := e.auth.FetchOnboarding(ctx, t.userID)
		if err == nil || attempt > e.retry.Attempts || e.generation.Load() != t.epoch || ctx.Err() != nil {
			return st, err
		}

		d := e.retry.delay(attempt, nil)
		e.log.Warn(ctx, "onboarding fetch failed, retrying", "user_id", t.userID, "attempt", attempt, "delay", d, "err", err)
		timer := time.NewTimer(d)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return st, err
		}
	}
}

// commit applies r if it is still relevant and reports whether it did. Must
// run on the loop.
func (e *Engine) commit(r result) bool {
	ctx := e.ctx
	if r.epoch != e.epoch || e.user == nil || e.user.ID != r.userID {
		e.log.Debug(ctx, "stale onboarding result dropped", "user_id", r.userID, "seq", r.seq)
		return false
	}

	if r.err != nil {
		e.log.Warn(ctx, "onboarding fetch failed, keeping previous state", "user_id", r.userID, "reason", r.reason, "err", r.err)
		if e.loading || e.st == models.StatePendingOnboardingCheck {
			e.loading = false
			e.transition(e.settledState())
			e.publish()
		}
		return true
	}

	if r.seq <= e.committedSeq {
		e.log.Debug(ctx, "superseded onboarding result dropped", "user_id", r.userID, "seq", r.seq, "committed", e.committedSeq)
		return false
	}
	e.committedSeq = r.seq

	e.onboarded = r.status.IsOnboarded
	e.prefs = r.status.Preferences.Clone()
	e.loading = false
	e.transition(e.settledState())
	e.publish()

	e.mirror(r.hint, r.status, false)
	return true
}

// mirror queues the cache writes that bring the hint in line with status. A
// missing flag reads as false. With force every key is rewritten.
func (e *Engine) mirror(h cacheHint, status models.OnboardingStatus, force bool) {
	if force || common.ParseBool(h.onboarded) != status.IsOnboarded {
		e.writer.Set(common.CacheKeyOnboarded, common.FormatBool(status.IsOnboarded))
	}

	switch {
	case status.Preferences != nil:
		if !force && h.hasPrefs {
			if cached, err := models.DecodePreferences(h.prefs); err == nil && cached.Equal(status.Preferences) {
				return
			}
		}
		enc, err := status.Preferences.Encode()
		if err != nil {
			e.log.Warn(e.ctx, "preferences not cached", "err", err)
			return
		}
		e.writer.Set(common.CacheKeyPreferences, enc)
	case h.hasPrefs:
		e.writer.RemoveAll([]string{common.CacheKeyPreferences})
	}
}
