package mock

import (
	"testing"

	"github.com/Rohith2006/Facial-Recognition/internal/database/storetest"
)

func TestMockIdentityStore(t *testing.T) {
	storetest.Run(t, NewMockIdentityStore())
}
