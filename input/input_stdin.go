package input

// DCSO HOSTNAMER
// Copyright (c) 2020, 2021, DCSO GmbH

import (
	"bufio"
	"io"
	"os"

	log "github.com/sirupsen/logrus"
)

// StdinInput is an Input reading addresses line by line from a Reader,
// standard input by default.
type StdinInput struct {
	AddressChan chan string
	Reader      io.Reader
	Verbose     bool
	Running     bool
	Logger      *log.Entry
	DoneChan    chan bool
	StopChan    chan bool
}

// GetName returns a printable name for the input
func (si *StdinInput) GetName() string {
	return "Stdin input"
}

func (si *StdinInput) handleStream() {
	defer close(si.DoneChan)
	scanner := bufio.NewScanner(si.Reader)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	for scanner.Scan() {
		select {
		case <-si.StopChan:
			return
		default:
			emitLine(scanner.Bytes(), si.AddressChan, false, si.Logger)
		}
	}
	if err := scanner.Err(); err != nil {
		si.Logger.Error(err)
	}
}

// MakeStdinInput returns a new StdinInput reading from stdin and writing
// addresses to outChan.
func MakeStdinInput(outChan chan string) *StdinInput {
	return MakeReaderInput(os.Stdin, outChan)
}

// MakeReaderInput returns a new StdinInput reading from r and writing
// addresses to outChan.
func MakeReaderInput(r io.Reader, outChan chan string) *StdinInput {
	return &StdinInput{
		AddressChan: outChan,
		Reader:      r,
		StopChan:    make(chan bool),
		DoneChan:    make(chan bool),
		Logger: log.WithFields(log.Fields{
			"domain": "input",
			"input":  "stdin",
		}),
	}
}

// Done returns a channel that is closed once the end of the input has been
// reached.
func (si *StdinInput) Done() <-chan bool {
	return si.DoneChan
}

// Run starts the StdinInput
func (si *StdinInput) Run() {
	if !si.Running {
		si.Running = true
		go si.handleStream()
	}
}

// Stop causes the StdinInput to stop reading and closes the passed
// notification channel.
func (si *StdinInput) Stop(stoppedChan chan bool) {
	if si.Running {
		close(si.StopChan)
		si.Running = false
	}
	close(stoppedChan)
}

// SetVerbose sets the input's verbosity level
func (si *StdinInput) SetVerbose(verbose bool) {
	si.Verbose = verbose
}
