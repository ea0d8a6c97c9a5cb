package application

import (
	"os"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/calcount/calcount-api/pkg/helpers"
)

func TestMain(m *testing.M) {
	helpers.PasswordCost = bcrypt.MinCost
	os.Exit(m.Run())
}
