// Package console implements the line-oriented console device: an
// interrupt-fed input buffer with rudimentary line editing and
// blocking whole-line reads.
//
// Special input characters:
//
//	newline   end of line
//	control-h backspace
//	control-u kill line
//	control-d end of file
package console

import (
	"io"
	"sync"
)

const InputBufSize = 128

const (
	ctrlD = 'D' - '@'
	ctrlH = 'H' - '@'
	ctrlU = 'U' - '@'
	del   = '\x7f'
)

type Console struct {
	mu       *sync.Mutex
	condLine *sync.Cond // readers wait here for a complete line

	out io.Writer

	buf [InputBufSize]byte
	r   uint64 // read index
	w   uint64 // write index: input before this is line-complete
	e   uint64 // edit index: input before this may still be erased
}

func MkConsole(out io.Writer) *Console {
	mu := new(sync.Mutex)
	return &Console{
		mu:       mu,
		condLine: sync.NewCond(mu),
		out:      out,
	}
}

// echo writes one character back to the output. Caller holds c.mu.
func (c *Console) echo(ch byte) {
	c.out.Write([]byte{ch})
}

// echoErase wipes out the last echoed character.
func (c *Console) echoErase() {
	c.out.Write([]byte{'\b', ' ', '\b'})
}

// Intr feeds one input character, as if from the device's interrupt
// handler: line editing is applied, the character is echoed, and a
// finished line wakes up readers.
func (c *Console) Intr(ch byte) {
	c.mu.Lock()
	switch ch {
	case ctrlU: // kill line
		for c.e != c.w && c.buf[(c.e-1)%InputBufSize] != '\n' {
			c.e -= 1
			c.echoErase()
		}
	case ctrlH, del: // backspace
		if c.e != c.w {
			c.e -= 1
			c.echoErase()
		}
	default:
		if ch != 0 && c.e-c.r < InputBufSize {
			if ch == '\r' {
				ch = '\n'
			}
			c.echo(ch)
			c.buf[c.e%InputBufSize] = ch
			c.e += 1
			if ch == '\n' || ch == ctrlD || c.e-c.r == InputBufSize {
				// the line is complete; nothing before w can be
				// edited away anymore
				c.w = c.e
				c.condLine.Broadcast()
			}
		}
	}
	c.mu.Unlock()
}

// Read copies out input up to and including the next newline,
// blocking until a whole line has arrived. A control-D at the start
// of a line reads as io.EOF; after more input arrives the console is
// readable again. A control-D behind other input ends the read early
// and is saved up so the next Read reports the end of file.
func (c *Console) Read(p []byte) (int, error) {
	target := uint64(len(p))
	n := target
	c.mu.Lock()
	for n > 0 {
		for c.r == c.w {
			c.condLine.Wait()
		}
		ch := c.buf[c.r%InputBufSize]
		c.r += 1
		if ch == ctrlD { // end of file
			if n < target {
				// save the control-D for the next Read
				c.r -= 1
			}
			break
		}
		p[target-n] = ch
		n -= 1
		if ch == '\n' {
			break
		}
	}
	c.mu.Unlock()
	read := int(target - n)
	if read == 0 && target > 0 {
		return 0, io.EOF
	}
	return read, nil
}

// Write sends p to the output unmodified.
func (c *Console) Write(p []byte) (int, error) {
	c.mu.Lock()
	n, err := c.out.Write(p)
	c.mu.Unlock()
	return n, err
}
