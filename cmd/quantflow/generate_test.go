package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/tehqua/QuantFlow/internal/config"
)

type GenerateCmdTestSuite struct {
	suite.Suite
	tempDir string
}

func TestGenerateCmdSuite(t *testing.T) {
	suite.Run(t, new(GenerateCmdTestSuite))
}

func (suite *GenerateCmdTestSuite) SetupTest() {
	suite.tempDir = suite.T().TempDir()
}

func (suite *GenerateCmdTestSuite) generate() {
	err := generateCommand().Run(context.Background(), []string{"generate", "--output", suite.tempDir})
	suite.Require().NoError(err)
}

func (suite *GenerateCmdTestSuite) TestSchemaGeneration() {
	suite.generate()

	for _, name := range []string{"backtest-config.json", "live-config.json"} {
		content, err := os.ReadFile(filepath.Join(suite.tempDir, name))
		suite.Require().NoError(err)
		suite.NotEmpty(content)
		suite.Contains(string(content), `"properties"`)
	}
}

func (suite *GenerateCmdTestSuite) TestSampleConfigGeneration() {
	suite.generate()

	content, err := os.ReadFile(filepath.Join(suite.tempDir, "backtest-config.yaml"))
	suite.Require().NoError(err)
	suite.Contains(string(content), "# yaml-language-server: $schema=backtest-config.json")
	suite.Contains(string(content), "sma_crossover")

	liveContent, err := os.ReadFile(filepath.Join(suite.tempDir, "live-config.yaml"))
	suite.Require().NoError(err)
	suite.Contains(string(liveContent), "mode: PAPER")
}

func (suite *GenerateCmdTestSuite) TestSampleConfigNotOverwritten() {
	samplePath := filepath.Join(suite.tempDir, "backtest-config.yaml")
	original := []byte("# my tuned config\n")
	suite.Require().NoError(os.WriteFile(samplePath, original, 0644))

	suite.generate()

	content, err := os.ReadFile(samplePath)
	suite.Require().NoError(err)
	suite.Equal(string(original), string(content))
}

func (suite *GenerateCmdTestSuite) TestGeneratedSampleConfigsLoad() {
	suite.generate()

	// The generated samples must pass their own loaders.
	backtestCfg := filepath.Join(suite.tempDir, "backtest-config.yaml")
	liveCfg := filepath.Join(suite.tempDir, "live-config.yaml")

	suite.Require().FileExists(backtestCfg)
	suite.Require().FileExists(liveCfg)

	_, err := config.LoadBacktestConfig(backtestCfg)
	suite.Assert().NoError(err)

	_, err = config.LoadLiveConfig(liveCfg)
	suite.Assert().NoError(err)
}
