// ABOUTME: Service-method decoration with logging, panic recovery, and translation
// ABOUTME: Errors leaving Call and Do are always *apperr.Error

package wrap

import "context"

// Call runs fn as the method name of w's component.
func Call[T any](ctx context.Context, w *Wrapper, name string, fn func(context.Context) (T, error)) (T, error) {
	if w.Excluded(name) {
		return fn(ctx)
	}

	logger := w.callLogger(ctx, name)
	logger.Debug("service call")

	v, err := invoke(ctx, fn)
	if err != nil {
		var zero T
		return zero, w.fail(logger, name, err)
	}
	w.succeed(logger, name)
	return v, nil
}

// Do runs fn as the method name of w's component when there is no result.
func Do(ctx context.Context, w *Wrapper, name string, fn func(context.Context) error) error {
	_, err := Call(ctx, w, name, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

func invoke[T any](ctx context.Context, fn func(context.Context) (T, error)) (v T, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = recovered(r)
		}
	}()
	return fn(ctx)
}
