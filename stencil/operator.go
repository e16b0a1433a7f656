package stencil

import "fmt"

// NumTerms is the number of Taylor unknowns of the second order stencil
const NumTerms = 5

// Operator holds the coefficients of a linear differential operator over the
// Taylor unknowns [u_x, u_y, u_xx/2, u_xy, u_yy/2] of the expansion
//
//	u(x+dx, y+dy) - u(x, y) = u_x dx + u_y dy + u_xx/2 dx^2 + u_xy dx dy + u_yy/2 dy^2
type Operator [NumTerms]float64

// Laplacian returns the operator scale*(u_xx + u_yy)
func Laplacian(scale float64) Operator {
	return Operator{0, 0, 2 * scale, 0, 2 * scale}
}

// WaveOperator returns the Laplacian scaled by c^2 dt^2, the operator the
// leapfrog update of u_tt = c^2 Lap(u) applies each step
func WaveOperator(c, dt float64) Operator {
	return Laplacian(c * c * dt * dt)
}

// Apply evaluates the operator on known derivatives
func (L Operator) Apply(ux, uy, uxx, uxy, uyy float64) float64 {
	return L[0]*ux + L[1]*uy + L[2]*uxx/2 + L[3]*uxy + L[4]*uyy/2
}

func (L Operator) String() string {
	return fmt.Sprintf("L[%g, %g, %g, %g, %g]", L[0], L[1], L[2], L[3], L[4])
}

// taylorRow returns the expansion monomials of an offset
func taylorRow(dx, dy float64) [NumTerms]float64 {
	return [NumTerms]float64{dx, dy, dx * dx, dx * dy, dy * dy}
}
