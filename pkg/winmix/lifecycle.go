package winmix

// initToken records whether this instance was the one to initialize the
// process-wide audio subsystem. Only the initializing party may tear the
// subsystem down; everyone else must leave it alone.
type initToken struct {
	owned    bool
	teardown func()
}

// release runs the teardown if and only if this token owns the
// initialization. Safe to call with a zero-value token.
func (t initToken) release() {
	if t.owned && t.teardown != nil {
		t.teardown()
	}
}
