package guard

import (
	"os"
	"sync"
)

var once sync.Once

func init() {
	once.Do(func() {
		if os.Getenv("SND_TEST_MODE") == "" {
			_ = os.Setenv("SND_TEST_MODE", "1")
		}
	})
}
