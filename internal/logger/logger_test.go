package logger

import (
	"testing"

	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"
)

type LoggerTestSuite struct {
	suite.Suite
}

func TestLoggerSuite(t *testing.T) {
	suite.Run(t, new(LoggerTestSuite))
}

func (suite *LoggerTestSuite) TestNewLogger() {
	logger, err := NewLogger()
	suite.Require().NoError(err)
	suite.NotNil(logger.Logger)
	suite.True(logger.Core().Enabled(zap.InfoLevel))
	suite.False(logger.Core().Enabled(zap.DebugLevel))
}

func (suite *LoggerTestSuite) TestNewDevelopmentLogger() {
	logger, err := NewDevelopmentLogger()
	suite.Require().NoError(err)
	suite.True(logger.Core().Enabled(zap.DebugLevel))
}

func (suite *LoggerTestSuite) TestNopLogger() {
	logger := NewNopLogger()
	suite.NotNil(logger.Logger)

	// nothing is enabled on a nop core
	suite.False(logger.Core().Enabled(zap.ErrorLevel))
	logger.Info("discarded", zap.String("symbol", "HBL.KA"))
}

func (suite *LoggerTestSuite) TestSyncNilLogger() {
	logger := &Logger{Logger: nil}
	suite.NoError(logger.Sync())
}

func (suite *LoggerTestSuite) TestWithFields() {
	logger := NewNopLogger()
	child := logger.With(zap.String("stage", "clean"))
	suite.NotNil(child)
	child.Warn("row dropped", zap.Int("line", 4))
}
