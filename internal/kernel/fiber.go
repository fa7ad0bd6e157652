package kernel

// fiber implements the context layer (spec.md §4.A): cooperative switching
// between the maestro goroutine and one actor goroutine. Exactly one of the
// two runs at any instant; control passes between them over a pair of
// unbuffered, unlabeled handoff channels, the same "OS threads gated by
// strict rendezvous" strategy spec.md §9 calls out as a valid factory
// choice. No data is ever sent over these channels — they exist purely to
// serialize control flow, which is what makes actor scheduling ordering
// independent of the Go runtime's own goroutine scheduler.
type fiber struct {
	resumeCh chan struct{}
	yieldCh  chan struct{}

	wantsToDie func() bool
	terminated bool
	panicVal   any
}

// newFiber spawns the actor's goroutine. The goroutine blocks immediately on
// the first resumeCh receive; body does not start running user code until
// the first call to resume. wantsToDie is polled by yield to decide whether
// to raise the forceful-kill condition on wakeup.
func newFiber(body func(y *fiber), wantsToDie func() bool) *fiber {
	f := &fiber{
		resumeCh: make(chan struct{}),
		yieldCh:  make(chan struct{}),
	}

	go f.run(body, wantsToDie)

	return f
}

// run is the actor goroutine's entry point. It is never called directly by
// scheduler code.
func (f *fiber) run(body func(y *fiber), wantsToDie func() bool) {
	<-f.resumeCh

	defer func() {
		if r := recover(); r != nil {
			if _, ok := r.(forcefulKill); !ok {
				// An actor panicked with something other than
				// the kill condition. This is a genuine bug in
				// user code or the kernel, not a modeled
				// failure; surface it to maestro rather than
				// silently terminating the actor.
				f.panicVal = r
			}
		}

		f.terminated = true
		f.yieldCh <- struct{}{}
	}()

	f.wantsToDie = wantsToDie

	body(f)
}

// resume transfers control from maestro into the actor until the actor's
// next yield or until its body function returns. Called from maestro only.
// Reports true once the actor has terminated (body returned, or it raised
// the kill condition and unwound).
func (f *fiber) resume() (terminated bool) {
	f.resumeCh <- struct{}{}
	<-f.yieldCh

	if f.panicVal != nil {
		panic(f.panicVal)
	}

	return f.terminated
}

// yield transfers control from the actor back to maestro, parking the actor
// goroutine until the next resume. Called from actor context only (never
// from within a simcall's kernel-mode closure, per spec.md §5). On
// resumption it raises the forceful-kill condition if the actor's
// wants_to_die flag became true while it was parked.
func (f *fiber) yield() {
	f.yieldCh <- struct{}{}
	<-f.resumeCh

	if f.wantsToDie != nil && f.wantsToDie() {
		panic(forcefulKill{})
	}
}

// stop is invoked by the actor itself to voluntarily exit before its body
// function would naturally return. It raises the kill condition as a Go
// panic, which unwinds the actor's own goroutine stack running any deferred
// cleanup along the way, then is caught by run's recover.
func (f *fiber) stop() {
	panic(forcefulKill{})
}
