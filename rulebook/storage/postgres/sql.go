package postgres

import "github.com/nonibytes/rulebook/rulebook/storage"

var SQLTemplates = storage.SQL{
	GetMeta:         "SELECT value FROM meta WHERE key = $1",
	SetMeta:         "INSERT INTO meta(key,value) VALUES($1,$2) ON CONFLICT(key) DO UPDATE SET value=EXCLUDED.value",
	GetRule:         "SELECT " + storage.RuleColumns + " FROM rules WHERE id = $1",
	FindRule:        "SELECT position, created_at FROM rules WHERE id = $1",
	MaxPosition:     "SELECT COALESCE(MAX(position), -1) FROM rules",
	CountRules:      "SELECT COUNT(*) FROM rules",
	AllRules:        "SELECT " + storage.RuleColumns + " FROM rules ORDER BY position, id",
	RuleIDsInOrder:  "SELECT id FROM rules ORDER BY position, id",
	InsertRule:      "INSERT INTO rules(id, label, mapping_id, mapping_label, position, expressions, created_at, updated_at) VALUES($1,$2,$3,$4,$5,$6,$7,$8)",
	UpdateRule:      "UPDATE rules SET label=$2, mapping_id=$3, mapping_label=$4, expressions=$5, updated_at=$6 WHERE id = $1",
	DeleteRule:      "DELETE FROM rules WHERE id = $1",
	SetRulePosition: "UPDATE rules SET position=$2, updated_at=$3 WHERE id = $1",
	CompactAfter:    "UPDATE rules SET position = position - 1 WHERE position > $1",
	ListRulesSelect: "SELECT " + storage.RuleColumns + " FROM rules",
}
