// Package readers loads point clouds and triangulations from plain text
// files. A node file holds one node per line as "x y flag"; a triangle file
// holds one triangle per line as "i j k". Fields may be separated by blanks or
// commas and lines starting with '#' are ignored. Gambit and Gmsh triangle
// meshes are read as well, see ReadMeshFile.
package readers

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/gstinoco/WaveGFD/cloud"
	"github.com/gstinoco/WaveGFD/utils"
)

// ReadCloudFile reads a node file and, when triFile is not empty, its
// triangulation. A mesh file in place of the node file carries both.
func ReadCloudFile(nodeFile, triFile string) (*cloud.PointCloud, cloud.Triangulation, error) {
	if IsMeshFile(nodeFile) {
		if triFile != "" {
			return nil, nil, utils.NewConfigError("triangles", "mesh file %s already holds the triangles", nodeFile)
		}
		return ReadMeshFile(nodeFile)
	}
	f, err := os.Open(nodeFile)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()
	pc, err := ReadNodes(f)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", nodeFile, err)
	}
	if triFile == "" {
		return pc, nil, nil
	}

	tf, err := os.Open(triFile)
	if err != nil {
		return nil, nil, err
	}
	defer tf.Close()
	tt, err := ReadTriangles(tf)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", triFile, err)
	}
	if err = tt.Validate(pc); err != nil {
		return nil, nil, fmt.Errorf("%s: %w", triFile, err)
	}
	return pc, tt, nil
}

// ReadNodes parses "x y flag" records
func ReadNodes(r io.Reader) (*cloud.PointCloud, error) {
	var X, Y []float64
	var flags []int
	err := scanRecords(r, 3, func(line int, fields []string) error {
		x, err := strconv.ParseFloat(fields[0], 64)
		if err != nil {
			return fmt.Errorf("line %d: x: %w", line, err)
		}
		y, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return fmt.Errorf("line %d: y: %w", line, err)
		}
		fl, err := wholeNumber(fields[2])
		if err != nil {
			return fmt.Errorf("line %d: flag: %w", line, err)
		}
		X = append(X, x)
		Y = append(Y, y)
		flags = append(flags, fl)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return cloud.NewPointCloud(X, Y, flags)
}

// ReadTriangles parses "i j k" records. Files written with 1-based indices,
// recognized by a smallest index of 1, are shifted to 0-based.
func ReadTriangles(r io.Reader) (cloud.Triangulation, error) {
	var tt cloud.Triangulation
	minIndex := math.MaxInt
	err := scanRecords(r, 3, func(line int, fields []string) error {
		var tri [3]int
		for n := 0; n < 3; n++ {
			v, err := wholeNumber(fields[n])
			if err != nil {
				return fmt.Errorf("line %d: vertex %d: %w", line, n, err)
			}
			tri[n] = v
			minIndex = min(minIndex, v)
		}
		tt = append(tt, tri)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if minIndex == 1 {
		for k := range tt {
			for n := range tt[k] {
				tt[k][n]--
			}
		}
	}
	return tt, nil
}

// wholeNumber parses an integer field. Numerical tools sometimes write
// integers as floats, so "1.0" is accepted and "1.5" is not.
func wholeNumber(field string) (int, error) {
	if v, err := strconv.Atoi(field); err == nil {
		return v, nil
	}
	f, err := strconv.ParseFloat(field, 64)
	if err != nil {
		return 0, err
	}
	if f != math.Trunc(f) || math.Abs(f) > 1<<53 {
		return 0, fmt.Errorf("%q is not a whole number", field)
	}
	return int(f), nil
}

func scanRecords(r io.Reader, nfields int, record func(line int, fields []string) error) error {
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		fields := strings.FieldsFunc(text, func(c rune) bool {
			return c == ',' || c == ' ' || c == '\t'
		})
		if len(fields) < nfields {
			return fmt.Errorf("line %d: expected %d fields, got %d", line, nfields, len(fields))
		}
		if err := record(line, fields[:nfields]); err != nil {
			return err
		}
	}
	return sc.Err()
}
