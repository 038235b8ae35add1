package timer

import (
	"testing"
	"time"
)

func TestVirtualClock_AfterFiresOnceDeadlinePasses(t *testing.T) {
	c := NewVirtualClock(time.Unix(0, 0))
	ch := c.After(5 * time.Second)

	c.Advance(3 * time.Second)
	select {
	case <-ch:
		t.Fatal("fired too early")
	default:
	}

	c.Advance(3 * time.Second)
	select {
	case <-ch:
	default:
		t.Fatal("did not fire after deadline passed")
	}
}

func TestVirtualClock_TickerFiresOncePerPeriodElapsed(t *testing.T) {
	c := NewVirtualClock(time.Unix(0, 0))
	ticker := c.NewTicker(time.Second)

	for i := 0; i < 3; i++ {
		c.Advance(time.Second)
		select {
		case <-ticker.C():
		default:
			t.Fatalf("tick %d did not fire", i+1)
		}
	}
}

func TestVirtualClock_StoppedTickerNeverFiresAgain(t *testing.T) {
	c := NewVirtualClock(time.Unix(0, 0))
	ticker := c.NewTicker(time.Second)
	ticker.Stop()

	c.Advance(5 * time.Second)
	select {
	case <-ticker.C():
		t.Fatal("stopped ticker fired")
	default:
	}
}
