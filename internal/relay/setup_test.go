package relay

import (
	"os"
	"testing"

	"github.com/Gustavo0x1/Dmaster-sub000/pkg/logger"
)

func TestMain(m *testing.M) {
	// Initialize the global logger before running any tests
	logger.Init()

	os.Exit(m.Run())
}
