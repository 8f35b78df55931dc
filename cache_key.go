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

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/loom-sql/loom/driver"
)

// CacheKey identifies one cached result, both for the first-tier (per
// Engine/transaction) and second-tier (cache.Cache-backed) caches. It folds
// in everything that can change what a statement call returns: the
// statement itself, the environment it ran against, the finalized SQL text
// (after dynamic-SQL and placeholder translation), and the bound
// arguments. Two calls that differ in any of these never collide; two
// calls identical in all of them are treated as the same cached entry, the
// same way MyBatis's CacheKey folds statement id, environment id, finalized
// SQL, and parameter values together.
type CacheKey struct {
	Statement string
	EnvID     string
	Digest    string
}

func (k CacheKey) String() string {
	return k.Statement + "@" + k.EnvID + ":" + k.Digest
}

// newCacheKey builds the CacheKey for statement executed with param against
// drv in the environment identified by envID. If building the finalized SQL
// fails (a dynamic-SQL error, say), the returned key still folds in the raw
// parameter so a lookup miss is the worst outcome, rather than propagating
// the build error out of what is meant to be a best-effort cache lookup;
// the real error surfaces again when the wrapped Executor itself builds and
// runs the statement.
func newCacheKey(statement Statement, drv driver.Driver, envID string, param Param) CacheKey {
	hash := sha256.New()
	if drv != nil {
		parameter := buildStatementParameters(param, statement, drv.Name(), statement.Configuration())
		if query, args, err := statement.Build(drv.Translator(), parameter); err == nil {
			hash.Write([]byte(query))
			for _, arg := range args {
				fmt.Fprintf(hash, "\x00%#v", arg)
			}
		}
	}
	fmt.Fprintf(hash, "\x00%#v", param)
	return CacheKey{
		Statement: statement.Name(),
		EnvID:     envID,
		Digest:    hex.EncodeToString(hash.Sum(nil)),
	}
}
