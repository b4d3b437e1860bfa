package rcontext

import (
	"context"

	"github.com/sirupsen/logrus"
	"github.com/t2bot/image-backup-proxy/common"
)

func Initial() RequestContext {
	return RequestContext{
		Context: context.Background(),
		Log:     logrus.WithFields(logrus.Fields{"nocontext": true}),
	}.populate()
}

func Wrap(ctx context.Context, log *logrus.Entry) RequestContext {
	return RequestContext{
		Context: ctx,
		Log:     log,
	}.populate()
}

type RequestContext struct {
	context.Context

	// Also stored on the context object itself
	Log *logrus.Entry // ip.logger
}

func (c RequestContext) populate() RequestContext {
	c.Context = context.WithValue(c.Context, common.ContextLogger, c.Log)
	return c
}

func (c RequestContext) ReplaceLogger(log *logrus.Entry) RequestContext {
	ctx := context.WithValue(c.Context, common.ContextLogger, log)
	return RequestContext{
		Context: ctx,
		Log:     log,
	}
}

func (c RequestContext) LogWithFields(fields logrus.Fields) RequestContext {
	return c.ReplaceLogger(c.Log.WithFields(fields))
}
