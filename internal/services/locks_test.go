package services

import "testing"

func TestUserLocksReleased(t *testing.T) {
	locks := newUserLocks()
	release := locks.Lock(1)
	if locks.size() != 1 {
		t.Errorf("size = %d, want 1", locks.size())
	}

	done := make(chan struct{})
	go func() {
		r := locks.Lock(1)
		r()
		close(done)
	}()

	otherRelease := locks.Lock(2)
	otherRelease()

	release()
	<-done
	if locks.size() != 0 {
		t.Errorf("size = %d after release, want 0", locks.size())
	}
}
