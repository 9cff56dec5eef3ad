package whatsapp

import (
	"os"
	"testing"

	"github.com/fernandosena/bot-whatsapp/utils"
)

func TestMain(m *testing.M) {
	utils.Init("error")
	os.Exit(m.Run())
}
