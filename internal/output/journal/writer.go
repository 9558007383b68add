// Package journal 实现成交记录的异步 JSONL 落盘。
// 热路径只负责投递，JSON 编码与文件 I/O 在后台 goroutine 完成；
// 成交记录属于写操作，不参与 latest-wins 丢弃。
package journal

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"grid-market-maker/internal/core/model"
)

// Writer 成交记录异步写入器
type Writer struct {
	// path 输出文件路径
	path string
	// ch 记录投递通道
	ch chan *model.FillRecord
	// flushCh flush 请求通道
	flushCh chan chan error

	closeOnce sync.Once
	closeErr  error
	closed    int32

	sendMu sync.Mutex
	wg     sync.WaitGroup
}

// NewWriter 创建成交记录写入器
// 参数 path: 输出文件路径
// 参数 bufferSize: 投递缓冲区大小（channel capacity）
func NewWriter(path string, bufferSize int) (*Writer, error) {
	if bufferSize <= 0 {
		bufferSize = 1000
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("创建输出目录失败: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("打开输出文件失败: %w", err)
	}

	w := &Writer{
		path:    path,
		ch:      make(chan *model.FillRecord, bufferSize),
		flushCh: make(chan chan error),
	}

	w.wg.Add(1)
	go w.loop(f)

	return w, nil
}

// Write 异步写入一条成交记录
// 缓冲区满时阻塞等待，不丢弃记录。
// 参数 rec: 成交记录
func (w *Writer) Write(rec *model.FillRecord) error {
	if w == nil || rec == nil {
		return fmt.Errorf("writer 或记录为空")
	}

	w.sendMu.Lock()
	defer w.sendMu.Unlock()
	if atomic.LoadInt32(&w.closed) == 1 {
		return fmt.Errorf("writer 已关闭")
	}
	w.ch <- rec
	return nil
}

// Flush 强制 flush 文件缓冲区
func (w *Writer) Flush() error {
	if w == nil {
		return nil
	}

	w.sendMu.Lock()
	defer w.sendMu.Unlock()
	if atomic.LoadInt32(&w.closed) == 1 {
		return nil
	}
	done := make(chan error, 1)
	w.flushCh <- done
	return <-done
}

// Close 关闭写入器
// 写出所有已投递记录并 flush 后返回。
func (w *Writer) Close() error {
	if w == nil {
		return nil
	}
	w.closeOnce.Do(func() {
		w.sendMu.Lock()
		atomic.StoreInt32(&w.closed, 1)
		close(w.ch)
		w.sendMu.Unlock()
		w.wg.Wait()
	})
	return w.closeErr
}

func (w *Writer) loop(f *os.File) {
	defer w.wg.Done()
	defer f.Close()

	bw := bufio.NewWriterSize(f, 256<<10)

	for {
		select {
		case rec, ok := <-w.ch:
			if !ok {
				w.closeErr = bw.Flush()
				return
			}
			b, err := json.Marshal(rec)
			if err != nil {
				continue
			}
			if _, err := bw.Write(b); err != nil {
				continue
			}
			_ = bw.WriteByte('\n')
		case done := <-w.flushCh:
			done <- bw.Flush()
		}
	}
}
