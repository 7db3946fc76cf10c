// Copyright 2016-2019 DutchSec (https://dutchsec.com/)
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package file

import (
	"fmt"
	"os"
	"time"
)

// OpenRotateFile opens name for appending; once maxSize is reached the file is
// renamed with a timestamp suffix and a new one is started.
func OpenRotateFile(name string, mode os.FileMode, maxSize int64) (*rotateFile, error) {
	f, err := os.OpenFile(name, os.O_CREATE|os.O_WRONLY|os.O_APPEND, mode)
	if err != nil {
		return nil, err
	}

	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}

	rf := &rotateFile{
		f:       f,
		path:    name,
		pos:     fi.Size(),
		mode:    mode,
		maxSize: maxSize,
	}

	if rf.pos < maxSize {
		return rf, nil
	} else if err := rf.rotate(); err != nil {
		return rf, err
	}

	return rf, nil
}

type rotateFile struct {
	f *os.File

	mode    os.FileMode
	path    string
	pos     int64
	maxSize int64
}

func (f *rotateFile) rotate() error {
	f.f.Sync()
	f.f.Close()

	name := fmt.Sprintf("%s.%s", f.path, time.Now().Format("20060102150405.000000"))
	if err := os.Rename(f.path, name); err != nil {
		return err
	}

	return f.reopen()
}

func (f *rotateFile) reopen() error {
	file, err := os.OpenFile(f.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, f.mode)
	if err != nil {
		return err
	}

	f.f = file
	f.pos = 0
	return nil
}

// Write splits p on line boundaries so rotated files only contain whole lines.
func (f *rotateFile) Write(p []byte) (int, error) {
	if _, err := os.Stat(f.path); err != nil {
		if err := f.reopen(); err != nil {
			return 0, err
		}
	}

	written := 0

	for f.pos+int64(len(p)) > f.maxSize {
		j := f.maxSize - f.pos
		if j >= int64(len(p)) {
			j = int64(len(p)) - 1
		}

		for ; j > 0; j-- {
			if p[j] == '\n' {
				break
			}
		}

		if j <= 0 {
			// a single line larger than what remains, start a new file
			if f.pos == 0 {
				break
			}

			if err := f.rotate(); err != nil {
				return written, err
			}
			continue
		}

		n, err := f.f.Write(p[:j+1])
		written += n
		if err != nil {
			return written, err
		}

		if err := f.rotate(); err != nil {
			return written, err
		}

		p = p[j+1:]
	}

	n, err := f.f.Write(p)

	f.pos += int64(n)
	return written + n, err
}

func (f *rotateFile) Close() error {
	return f.f.Close()
}
