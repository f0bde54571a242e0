/******************************************************************************\
* BraneScript                                                                  *
*                                                                              *
* Copyright 2024 The BraneScript Authors                                       *
* Licensed under the MIT license (see LICENSE.txt for details)                 *
\******************************************************************************/

// Package romutil contains small utilities shared by the frontend, backend,
// and VM packages: binary serialization helpers, file discovery, and the
// output sink abstraction used by the `print` built-in.
package romutil
