// Copyright 2026 The Zaparoo Project Contributors.
// SPDX-License-Identifier: Apache-2.0
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package scenario runs the PHDC validation tests against a manager.
//
// Tag tests 0 to 4 run a phdc.TagAgent over Type 3 Tag emulation; link
// tests 0 to 3 run an llcp.Agent over a data link connection. Both drive
// the manager through the Peer interface with IEEE 11073-20601 thermometer
// association and release APDUs, or with APDUs read from a scenario file.
//
// The package also provides the manager side used to run the tests in
// process: a validation responder for link connections and a tag manager
// loop that reads and writes PHD records through block access.
package scenario
