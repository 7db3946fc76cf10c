/*
* Honeytrap
* Copyright (C) 2016-2017 DutchSec (https://dutchsec.com/)
*
* This program is free software; you can redistribute it and/or modify it under
* the terms of the GNU Affero General Public License version 3 as published by the
* Free Software Foundation.
*
* This program is distributed in the hope that it will be useful, but WITHOUT
* ANY WARRANTY; without even the implied warranty of MERCHANTABILITY or FITNESS
* FOR A PARTICULAR PURPOSE.  See the GNU Affero General Public License for more
* details.
*
* You should have received a copy of the GNU Affero General Public License
* version 3 along with this program in the file "LICENSE".  If not, see
* <http://www.gnu.org/licenses/agpl-3.0.txt>.
*
* See https://honeytrap.io/ for more details. All requests should be sent to
* licensing@honeytrap.io
*
* The interactive user interfaces in modified source and object code versions
* of this program must display Appropriate Legal Notices, as required under
* Section 5 of the GNU Affero General Public License version 3.
*
* In accordance with Section 7(b) of the GNU Affero General Public License version 3,
* these Appropriate Legal Notices must retain the display of the "Powered by
* Honeytrap" logo and retain the original copyright notice. If the display of the
* logo is not reasonably feasible for technical reasons, the Appropriate Legal Notices
* must display the words "Powered by Honeytrap" and retain the original copyright notice.
 */
package transforms

import (
	"errors"
	"net"

	"github.com/BurntSushi/toml"
	"github.com/honeytrap/honeytrap-coap/event"
	"github.com/honeytrap/honeytrap-coap/pushers"
	logging "github.com/op/go-logging"
	maxminddb "github.com/oschwald/maxminddb-golang"
)

var (
	_ = Register("geoip", Geoip)
)

var log = logging.MustGetLogger("transforms/geoip")

// ErrNoDatabase is returned when the geoip transform lacks a database path.
var ErrNoDatabase = errors.New("geoip: no database configured")

type geoipConfig struct {
	Database string `toml:"database"`
}

type countryRecord struct {
	Country struct {
		ISOCode string `maxminddb:"iso_code"`
	} `maxminddb:"country"`
}

// Geoip stores the country of the source-ip in source-ip-country, looked up
// in a MaxMind (GeoLite2-Country or -City) database.
func Geoip(c toml.Primitive, decoder pushers.TomlDecoder) (TransformFunc, error) {
	cfg := geoipConfig{}
	if err := decoder.PrimitiveDecode(c, &cfg); err != nil {
		return nil, err
	}

	if cfg.Database == "" {
		return nil, ErrNoDatabase
	}

	db, err := maxminddb.Open(cfg.Database)
	if err != nil {
		return nil, err
	}

	return geoipFunc(db), nil
}

func geoipFunc(db *maxminddb.Reader) TransformFunc {
	return func(e event.Event, send func(event.Event)) {
		ip := net.ParseIP(e.Get("source-ip"))
		if ip == nil {
			send(e)
			return
		}

		record := countryRecord{}
		if err := db.Lookup(ip, &record); err != nil {
			log.Errorf("Error looking up %s: %s", ip.String(), err.Error())
		} else if record.Country.ISOCode != "" {
			e.Store("source-ip-country", record.Country.ISOCode)
		}

		send(e)
	}
}
