package interceptor

import (
	"context"
)

// Run starts the engine, calls fn and stops the engine however fn exits,
// including by panic. The first error wins.
// Run 启动引擎并调用 fn，无论 fn 如何退出都会停止引擎。
func (e *Engine) Run(ctx context.Context, fn func(ctx context.Context, e *Engine) error) (err error) {
	if err := e.Start(); err != nil {
		return err
	}
	defer func() {
		if stopErr := e.Stop(); err == nil {
			err = stopErr
		}
	}()
	return fn(ctx, e)
}

// With builds an engine from settings and runs fn inside its lifetime.
func With(ctx context.Context, settings Settings, fn func(ctx context.Context, e *Engine) error) error {
	e, err := New(settings)
	if err != nil {
		return err
	}
	return e.Run(ctx, fn)
}
