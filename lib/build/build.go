/*package build exposes compile-time switches selected with build tags.

   $ go build -tags debug   # explicit bounds/argument checks
   $ go build -tags mpi     # link against OpenMPI instead of the in-process
                            # communicator
*/
package build
