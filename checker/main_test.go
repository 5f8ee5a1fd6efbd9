package checker_test

import (
	"testing"

	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		// database/sql pools opened by pgtestdb for template setup
		goleak.IgnoreTopFunction("database/sql.(*DB).connectionOpener"),
	)
}
