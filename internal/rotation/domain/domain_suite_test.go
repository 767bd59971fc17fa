package domain_test

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestRotationDomain(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Rotation Domain Suite")
}
