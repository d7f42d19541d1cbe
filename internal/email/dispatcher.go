package email

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

const defaultSendTimeout = 15 * time.Second

// Dispatcher envía correos en segundo plano. Los errores de transporte se
// registran y nunca llegan a quien invocó Notify.
type Dispatcher struct {
	sender  Sender
	logger  *zap.Logger
	timeout time.Duration

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

func NewDispatcher(logger *zap.Logger, sender Sender, timeout time.Duration) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = defaultSendTimeout
	}
	return &Dispatcher{
		sender:  sender,
		logger:  logger,
		timeout: timeout,
	}
}

// Notify no bloquea: el envío corre en su propia goroutine con un contexto
// independiente del de la petición.
func (d *Dispatcher) Notify(to, subject, htmlBody string) {
	if d.sender == nil {
		d.logger.Warn("email sender not configured, message dropped", zap.String("subject", subject))
		return
	}
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		d.logger.Warn("email dispatcher closed, message dropped", zap.String("subject", subject))
		return
	}
	d.wg.Add(1)
	d.mu.Unlock()
	go func() {
		defer d.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				d.logger.Error("email send panicked", zap.Any("panic", r), zap.String("subject", subject))
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		defer cancel()
		if err := d.sender.Send(ctx, to, subject, htmlBody); err != nil {
			d.logger.Warn("send email failed", zap.Error(err), zap.String("email", to), zap.String("subject", subject))
			return
		}
		d.logger.Debug("email sent", zap.String("email", to), zap.String("subject", subject))
	}()
}

// Close deja de aceptar correos y espera a que terminen los envíos en curso.
// Cada envío está acotado por el timeout del dispatcher.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()
	d.wg.Wait()
}
