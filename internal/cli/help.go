package cli

const rootLong = `rulebook stores ordered classification rules and assigns records to
mappings with them.

A rule line combines conditions with $AND, $OR and $NOT:

  $AND(?sec.type == "EQ"?,$NOT(?sec.currency :=["USD","CAD"]?))

A rule matches a record when every line holds. classify returns the
mapping of the first matching rule in position order.

Books live in a sqlite file (--sqlite-path/--book) or a postgres schema
(--pg-dsn/--book). Defaults for any global flag can be read from a
.yaml, .toml or .json file given with --config.`
