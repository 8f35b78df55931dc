/*
Copyright 2025 eatmoreapple

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package loom

import "github.com/loom-sql/loom/sql"

// Action identifies the kind of SQL operation a statement performs.
// It is an alias of sql.Action so that code importing the loom package
// directly and code importing the sql subpackage agree on the same type.
type Action = sql.Action

const (
	// Select is an Action for query
	Select = sql.Select

	// Insert is an Action for insert
	Insert = sql.Insert

	// Update is an Action for update
	Update = sql.Update

	// Delete is an Action for delete
	Delete = sql.Delete
)
