package cachemgr

import (
	"os"

	"github.com/ChaoTzuJung/i18n-mcp-translator/internal/cache"
	"github.com/ChaoTzuJung/i18n-mcp-translator/internal/paths"
)

// VerifyResult reports the integrity of the persisted cache.
type VerifyResult struct {
	Valid            int      `json:"valid" yaml:"valid"`
	Corrupted        int      `json:"corrupted" yaml:"corrupted"`
	Repaired         int      `json:"repaired" yaml:"repaired"`
	Backups          []string `json:"backups,omitempty" yaml:"backups,omitempty"`
	GitignoreCreated bool     `json:"gitignoreCreated,omitempty" yaml:"gitignoreCreated,omitempty"`
	Details          []string `json:"details,omitempty" yaml:"details,omitempty"`
}

// Verify parses every record and both tables. With fix, a corrupted record
// is deleted, a corrupted table is backed up and recreated empty, and a
// missing .gitignore is written.
func (m *Manager) Verify(fix bool) (*VerifyResult, error) {
	res := &VerifyResult{}

	records, err := m.store.RecordFiles()
	if err != nil {
		return nil, err
	}
	for _, r := range records {
		_, err := m.store.ReadRecord(r.Name)
		if err == nil {
			res.Valid++
			continue
		}
		res.Corrupted++
		res.Details = append(res.Details, r.Name+": "+err.Error())
		if !fix {
			continue
		}
		if err := m.store.RemoveRecord(r.Name); err != nil {
			res.Details = append(res.Details, r.Name+": repair failed: "+err.Error())
			continue
		}
		res.Repaired++
	}

	for _, table := range []string{cache.TableStrings, cache.TableResponses} {
		exists, err := m.store.CheckTable(table)
		if err == nil {
			if exists {
				res.Valid++
			}
			continue
		}
		res.Corrupted++
		res.Details = append(res.Details, table+": "+err.Error())
		if !fix {
			continue
		}
		backup, err := m.store.ResetTable(table)
		if err != nil {
			res.Details = append(res.Details, table+": repair failed: "+err.Error())
			continue
		}
		if backup != "" {
			res.Backups = append(res.Backups, backup)
		}
		res.Repaired++
	}

	if fix {
		if _, err := os.Stat(paths.GitignorePath(m.dir)); os.IsNotExist(err) {
			if err := os.WriteFile(paths.GitignorePath(m.dir), []byte(paths.GitignoreContent), 0644); err == nil {
				res.GitignoreCreated = true
			}
		}
	}

	m.logger.Info("cache verify finished",
		"valid", res.Valid,
		"corrupted", res.Corrupted,
		"repaired", res.Repaired)
	return res, nil
}
