package winmix

import "testing"

func TestInitTokenReleasesOnlyWhenOwned(t *testing.T) {
	released := 0

	owned := initToken{owned: true, teardown: func() { released++ }}
	owned.release()

	if released != 1 {
		t.Errorf("owning token should release exactly once, released %d times", released)
	}

	released = 0

	unowned := initToken{owned: false, teardown: func() { released++ }}
	unowned.release()

	if released != 0 {
		t.Errorf("non-owning token must not release, released %d times", released)
	}
}

func TestInitTokenZeroValueIsSafe(t *testing.T) {
	var token initToken
	token.release()
}
