package progressbar

import "testing"

func TestManualProgressBarIncrement(t *testing.T) {
	pbar := NewManualProgressBar(10, 3)

	for i := 0; i < 5; i++ {
		pbar.Increment()
	}

	// Increments past max are ignored
	if pbar.progress != 3 {
		t.Errorf("progress: want(3) have(%v)", pbar.progress)
	}
}
