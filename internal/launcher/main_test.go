package launcher

import (
	"os"
	"testing"

	"github.com/smazurov/rtspcam/internal/supervisor/supervisortest"
)

func TestMain(m *testing.M) {
	supervisortest.RunIfFake()
	os.Exit(m.Run())
}
