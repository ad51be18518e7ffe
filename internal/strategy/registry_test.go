package strategy

import (
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/tehqua/QuantFlow/internal/types"
	"github.com/tehqua/QuantFlow/pkg/errors"
)

type stubStrategy struct {
	apiVersion string
}

func (s *stubStrategy) Name() string       { return "stub" }
func (s *stubStrategy) APIVersion() string { return s.apiVersion }
func (s *stubStrategy) Init(*Context) error {
	return nil
}
func (s *stubStrategy) OnBar(*Context) ([]types.OrderIntent, error) {
	return nil, nil
}

type RegistryTestSuite struct {
	suite.Suite
	registry *Registry
}

func TestRegistrySuite(t *testing.T) {
	suite.Run(t, new(RegistryTestSuite))
}

func (suite *RegistryTestSuite) SetupTest() {
	suite.registry = NewRegistry()
}

func (suite *RegistryTestSuite) stubFactory(apiVersion string) Factory {
	return func(string) (Strategy, error) {
		return &stubStrategy{apiVersion: apiVersion}, nil
	}
}

func (suite *RegistryTestSuite) TestRegisterAndCreate() {
	suite.Require().NoError(suite.registry.Register("stub", suite.stubFactory("1.0.0")))

	s, err := suite.registry.Create("stub", "")
	suite.Require().NoError(err)
	suite.Equal("stub", s.Name())
}

func (suite *RegistryTestSuite) TestRegisterValidation() {
	suite.Error(suite.registry.Register("", suite.stubFactory("1.0.0")))
	suite.Error(suite.registry.Register("stub", nil))
}

func (suite *RegistryTestSuite) TestRegisterDuplicate() {
	suite.Require().NoError(suite.registry.Register("stub", suite.stubFactory("1.0.0")))

	err := suite.registry.Register("stub", suite.stubFactory("1.0.0"))
	suite.Error(err)
}

func (suite *RegistryTestSuite) TestCreateUnknown() {
	_, err := suite.registry.Create("missing", "")
	suite.Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeStrategyNotFound))
}

func (suite *RegistryTestSuite) TestCreateRejectsIncompatibleVersion() {
	suite.Require().NoError(suite.registry.Register("old", suite.stubFactory("0.1.0")))

	_, err := suite.registry.Create("old", "")
	suite.Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeVersionMismatch))
}

func (suite *RegistryTestSuite) TestNamesSorted() {
	suite.Require().NoError(suite.registry.Register("zeta", suite.stubFactory("1.0.0")))
	suite.Require().NoError(suite.registry.Register("alpha", suite.stubFactory("1.0.0")))

	suite.Equal([]string{"alpha", "zeta"}, suite.registry.Names())
}

func (suite *RegistryTestSuite) TestDefaultRegistryHasBuiltins() {
	registry := NewDefaultRegistry()
	suite.Equal([]string{RSIReversionName, SMACrossoverName}, registry.Names())

	s, err := registry.Create(SMACrossoverName, "")
	suite.Require().NoError(err)
	suite.Equal(SMACrossoverName, s.Name())
}
