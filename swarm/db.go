package swarm

import "fmt"

const (
	// TblParticles is the name of the sql database table that contains
	// positions, merits and scaled merits of particles for each iteration.
	TblParticles = "gpsoparticles"
	// TblParticlesBest is the name of the sql database table that contains
	// each particle's personal best position at each iteration.
	TblParticlesBest = "gpsoparticlesbest"
	// TblBest is the name of the sql database table that contains the best
	// position for the entire swarm at each iteration.
	TblBest = "gpsobest"
)

// Subsets are stored as their 1-based attribute list ("1 4 7 ").

func (it *Iterator) initdb() error {
	if it.Db == nil {
		return nil
	}

	stmts := []string{
		"CREATE TABLE IF NOT EXISTS " + TblParticles + " (particle INTEGER, iter INTEGER, merit REAL, scaled REAL, nfeat INTEGER, subset TEXT);",
		"CREATE TABLE IF NOT EXISTS " + TblParticlesBest + " (particle INTEGER, iter INTEGER, best REAL, nfeat INTEGER, subset TEXT);",
		"CREATE TABLE IF NOT EXISTS " + TblBest + " (iter INTEGER, merit REAL, nfeat INTEGER, subset TEXT);",
	}
	for _, s := range stmts {
		if _, err := it.Db.Exec(s); err != nil {
			return fmt.Errorf("swarm: init db: %w", err)
		}
	}
	return nil
}

func (it *Iterator) updateDb() (err error) {
	if it.Db == nil {
		return nil
	}

	tx, err := it.Db.Begin()
	if err != nil {
		return fmt.Errorf("swarm: update db: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
			err = fmt.Errorf("swarm: update db: %w", err)
			return
		}
		err = tx.Commit()
	}()

	s0 := "INSERT INTO " + TblParticles + " (particle,iter,merit,scaled,nfeat,subset) VALUES (?,?,?,?,?,?);"
	s1 := "INSERT INTO " + TblParticlesBest + " (particle,iter,best,nfeat,subset) VALUES (?,?,?,?,?);"
	for _, p := range it.Pop {
		_, err = tx.Exec(s0, p.Id, it.count, p.Merit, p.Scaled, p.Pos.Count(), p.Pos.String())
		if err != nil {
			return err
		}
		_, err = tx.Exec(s1, p.Id, it.count, p.BestMerit, p.Best.Count(), p.Best.String())
		if err != nil {
			return err
		}
	}

	s2 := "INSERT INTO " + TblBest + " (iter,merit,nfeat,subset) VALUES (?,?,?,?);"
	_, err = tx.Exec(s2, it.count, it.best.Merit, it.best.Features, it.best.Pos.String())
	return err
}
