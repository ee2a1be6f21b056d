// Package deadline persists owners, assets, deadline types, deadlines, and
// the dispatch log in SQLite. It also houses the synchronizer that derives
// deadline records from the date fields observed on assets.
package deadline
