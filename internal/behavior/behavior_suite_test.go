package behavior_test

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestBehavior(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Behavior Suite")
}
