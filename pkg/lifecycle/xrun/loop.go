package xrun

import (
	"context"
	"time"

	"github.com/omeyang/xcorr/pkg/runtime/xloop"
)

// Loop 把事件循环包装为服务。
//
// 服务运行期间持有循环，循环不会因暂时空闲而退出。ctx 取消后释放持有，
// 让在途的请求和定时器在 drain 内自然结束；超时则 Stop，丢弃剩余任务。
// drain <= 0 时立即 Stop。
//
// 循环自行退出（例如被外部 Stop）时服务随之返回。
func Loop(l *xloop.Loop, drain time.Duration) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		if l == nil {
			return ErrNilLoop
		}
		release := l.Hold()
		defer release()

		runErr := make(chan error, 1)
		go func() { runErr <- l.Run(context.Background()) }()

		select {
		case err := <-runErr:
			return err
		case <-ctx.Done():
		}

		release()
		if drain <= 0 {
			l.Stop()
			return <-runErr
		}
		timer := time.NewTimer(drain)
		defer timer.Stop()
		select {
		case err := <-runErr:
			return err
		case <-timer.C:
			l.Stop()
			return <-runErr
		}
	}
}
